package nfe_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

// loadRecord lee el cupón de ejemplo (2 ítems, produtos brutos 37,00, a pagar 35,50) ya normalizado.
func loadRecord(t *testing.T) *nfe.Record {
	t.Helper()
	data, err := os.ReadFile("testdata/nfce_mercado.json")
	require.NoError(t, err)
	rec, err := nfe.Decode(data)
	require.NoError(t, err)
	rec.Normalize()
	return rec
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ─── Decode ───────────────────────────────────────────────────────────────────

func TestDecode_EnvelopeAndBare(t *testing.T) {
	rec, err := nfe.Decode([]byte(`{"NFe":{"identificacao":{"CNPJ_Emitente":"1"},"itens":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Identification.EmitterTaxID)

	rec, err = nfe.Decode([]byte(`{"identificacao":{"Nome_Emitente":"X"}}`))
	require.NoError(t, err)
	assert.Equal(t, "X", rec.Identification.EmitterName)
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"vacío":             "  ",
		"no json":           "la nota no es legible",
		"sin grupo NFe":     `{"erro":"Arquivo ilegível"}`,
		"monto no numérico": `{"NFe":{"identificacao":{"CNPJ_Emitente":"1"},"totais":{"Valor_Total_a_Pagar":"trinta reais"}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := nfe.Decode([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestDecode_LenientAmounts(t *testing.T) {
	cases := map[string]struct {
		value string
		want  string // vacío: campo nil
	}{
		"null literal":     {`null`, ""},
		"null entre comas": {`"null"`, ""},
		"NULL mayúsculas":  {`"NULL"`, ""},
		"vacío":            {`""`, ""},
		"solo espacios":    {`"  "`, ""},
		"coma decimal":     {`"35,50"`, "35.5"},
		"miles y coma":     {`"1.234,56"`, "1234.56"},
		"con moneda":       {`"R$ 35,50"`, "35.5"},
		"miles en inglés":  {`"1,234.56"`, "1234.56"},
		"punto decimal":    {`"35.50"`, "35.5"},
		"número":           {`35.5`, "35.5"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			body := `{"NFe":{"identificacao":{"CNPJ_Emitente":"1","Chave_Acesso":"null"},` +
				`"totais":{"Valor_Total_a_Pagar":` + tc.value + `,"Informacao_Tributos":{"Percentual_Federais":` + tc.value + `}}}}`
			rec, err := nfe.Decode([]byte(body))
			require.NoError(t, err)
			assert.Nil(t, rec.Identification.AccessKey)
			for _, got := range []*decimal.Decimal{rec.Totals.Payable, rec.Totals.Taxes.FederalPercent} {
				if tc.want == "" {
					assert.Nil(t, got)
					continue
				}
				require.NotNil(t, got)
				assert.Equal(t, tc.want, got.String())
			}
		})
	}
}

func TestDecode_PercentSign(t *testing.T) {
	rec, err := nfe.Decode([]byte(`{"NFe":{"identificacao":{"CNPJ_Emitente":"1"},"totais":{"Informacao_Tributos":{"Percentual_Federais":"4,25%"}}}}`))
	require.NoError(t, err)
	require.NotNil(t, rec.Totals.Taxes.FederalPercent)
	assert.Equal(t, "4.25", rec.Totals.Taxes.FederalPercent.String())
}

// ─── Normalize ────────────────────────────────────────────────────────────────

func TestNormalize(t *testing.T) {
	rec := loadRecord(t)
	id := rec.Identification

	assert.Equal(t, "12345678000195", id.EmitterTaxID)
	assert.Equal(t, "SAO PAULO", id.Address.Municipality)
	assert.Equal(t, "SP", id.Address.State)
	require.NotNil(t, id.Address.PostalCode)
	assert.Equal(t, "01000000", *id.Address.PostalCode)
	require.NotNil(t, id.AccessKey)
	assert.Len(t, *id.AccessKey, 44)
	assert.Equal(t, "KG", rec.Items[1].Unit)
	assert.Equal(t, "Cartão de Débito", rec.Payment.Method)
	require.NotNil(t, rec.Additional)
	assert.Nil(t, rec.Additional.Salesperson)
}

func TestNormalize_EmptyAdditionalDataBecomesNil(t *testing.T) {
	blank := "  "
	rec := &nfe.Record{Additional: &nfe.AdditionalData{Cashier: &blank}}
	rec.Normalize()
	assert.Nil(t, rec.Additional)
}

func TestFoldText(t *testing.T) {
	assert.Equal(t, "SAO JOAO DEL REI", nfe.FoldText("  São  João del Rei "))
	assert.Equal(t, "FLORIANOPOLIS", nfe.FoldText("Florianópolis"))
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestValidate_SampleIsValid(t *testing.T) {
	rec := loadRecord(t)
	require.NoError(t, rec.Validate())
}

func TestValidate_MissingPayable(t *testing.T) {
	rec := loadRecord(t)
	rec.Totals.Payable = nil

	err := rec.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRecord))
	assert.Contains(t, err.Error(), "Valor_Total_a_Pagar es obligatorio")
}

func TestValidate_ItemTolerance(t *testing.T) {
	cases := []struct {
		name  string
		total string
		ok    bool
	}{
		{"exacto", "16.00", true},
		{"dentro de 0.01", "16.01", true},
		{"fuera de tolerancia", "16.02", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := loadRecord(t)
			rec.Items[1].Total = dec(tc.total)
			// se ajusta el total declarado para aislar la regla del ítem
			rec.Totals.Gross = nil
			payable := decimal.RequireFromString("20").Add(*rec.Items[1].Total).Sub(*rec.Totals.Discounts)
			rec.Totals.Payable = &payable
			rec.Payment.Amount = &payable

			err := rec.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "ítem 2")
			}
		})
	}
}

func TestValidate_NegativeMoney(t *testing.T) {
	rec := loadRecord(t)
	rec.Totals.Discounts = dec("-0.50")
	err := rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Descontos_Gerais no puede ser negativo")
}

func TestValidate_InconsistentTotals(t *testing.T) {
	t.Run("payable no cuadra", func(t *testing.T) {
		rec := loadRecord(t)
		rec.Totals.Payable = dec("40.00")
		err := rec.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Valor_Total_a_Pagar 40.00")
	})
	t.Run("suma de ítems distinta del bruto", func(t *testing.T) {
		rec := loadRecord(t)
		rec.Totals.Gross = dec("50.00")
		err := rec.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Valor_Total_Produtos 50.00")
	})
	t.Run("bruto neto sin descuentos de ítem", func(t *testing.T) {
		rec := loadRecord(t)
		rec.Totals.Gross = dec("36.00")
		rec.Totals.Payable = dec("35.50")
		assert.NoError(t, rec.Validate())
	})
}

func TestValidate_IdentificationRules(t *testing.T) {
	rec := loadRecord(t)
	badKey := "43210112345678000190550010000000011234567890"
	badDate := "2025/13/45"
	rec.Identification.AccessKey = &badKey
	rec.Identification.AuthorizationDate = &badDate
	rec.Identification.Address.State = "XX"
	rec.Identification.EmitterTaxID = "12345678000199"

	err := rec.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "chave")
	assert.Contains(t, msg, "Data_Autorizacao")
	assert.Contains(t, msg, "UF \"XX\"")
	assert.Contains(t, msg, "CNPJ")
}

func TestValidate_ColumnLengths(t *testing.T) {
	long := func(n int) *string { v := strings.Repeat("ã", n); return &v }
	cases := map[string]struct {
		mutate func(r *nfe.Record)
		want   string
	}{
		"descricao":  {func(r *nfe.Record) { r.Items[0].Description = *long(256) }, "ítem 1: Descricao excede 255 caracteres"},
		"unidade":    {func(r *nfe.Record) { r.Items[1].Unit = "PACOTE GRANDE" }, "ítem 2: Unidade excede 10 caracteres"},
		"protocolo":  {func(r *nfe.Record) { r.Identification.Protocol = long(21) }, "Protocolo_Autorizacao excede 20 caracteres"},
		"pagamento":  {func(r *nfe.Record) { r.Payment.Method = *long(51) }, "Forma_Pagamento excede 50 caracteres"},
		"lei":        {func(r *nfe.Record) { r.Totals.Taxes.LegalBasis = long(101) }, "Lei_Tributos excede 100 caracteres"},
		"percentual": {func(r *nfe.Record) { r.Totals.Taxes.FederalPercent = dec("1000") }, "Percentual_Federais excede el máximo"},
		"monto":      {func(r *nfe.Record) { r.Payment.Change = dec("100000000000") }, "Troco excede el máximo"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := loadRecord(t)
			tc.mutate(rec)
			err := rec.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRecord)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("en el límite", func(t *testing.T) {
		rec := loadRecord(t)
		rec.Items[0].Description = *long(255)
		rec.Identification.Protocol = long(20)
		assert.NoError(t, rec.Validate(), "se cuentan caracteres, no bytes")
	})
}

// Una chave con dígito verificador errado rechaza la nota: es la identidad de deduplicación.
func TestValidate_MisreadAccessKeyIsRejected(t *testing.T) {
	rec := loadRecord(t)
	key := *rec.Identification.AccessKey
	last := key[len(key)-1]
	misread := key[:len(key)-1] + string('0'+(last-'0'+1)%10)
	rec.Identification.AccessKey = &misread

	err := rec.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.Contains(t, err.Error(), "chave")
}

func TestValidate_NoItems(t *testing.T) {
	rec := loadRecord(t)
	rec.Items = nil
	err := rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "al menos un ítem")
}

// ─── Aggregate ────────────────────────────────────────────────────────────────

func TestAggregate_RoundTrip(t *testing.T) {
	rec := loadRecord(t)
	agg, err := rec.Aggregate()
	require.NoError(t, err)

	require.Len(t, agg.Items, 2)
	assert.Equal(t, 1, agg.Items[0].Number)
	assert.Equal(t, 2, agg.Items[1].Number)
	assert.True(t, agg.Items[1].Quantity.Equal(decimal.RequireFromString("2")))
	assert.Equal(t, "2025-10-23", agg.Invoice.AuthorizationDate.Format("2006-01-02"))
	assert.Equal(t, "18:30:00", *agg.Invoice.AuthorizationTime)
	assert.True(t, agg.Totals.Payable.Equal(decimal.RequireFromString("35.5")))
	require.NotNil(t, agg.AdditionalData)

	back := nfe.FromAggregate(agg)
	assert.Equal(t, rec.Identification.EmitterTaxID, back.Identification.EmitterTaxID)
	assert.Equal(t, "23/10/2025", *back.Identification.AuthorizationDate)
	require.Len(t, back.Items, 2)
	assert.NoError(t, back.Validate())
}

func TestAggregate_InvalidRecord(t *testing.T) {
	rec := loadRecord(t)
	rec.Payment.Amount = nil
	_, err := rec.Aggregate()
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
}
