package nfe

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/pkg/sefaz"
)

// Tolerance diferencia máxima admitida por redondeo entre valores calculados y declarados.
var Tolerance = decimal.RequireFromString("0.01")

var (
	// maxAmount cota de NUMERIC(15,4), la columna numérica más estrecha en parte entera.
	maxAmount  = decimal.New(1, 11)
	maxPercent = decimal.NewFromInt(1000)

	dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006", "02/01/06"}
	timeLayouts = []string{"15:04:05", "15:04"}
)

// Validate comprueba obligatorios, montos no negativos y la coherencia de totales.
// Devuelve todos los problemas juntos, envueltos en domain.ErrInvalidRecord.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: registro nulo", domain.ErrInvalidRecord)
	}
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	id := r.Identification
	if id.EmitterTaxID == "" {
		add("CNPJ_Emitente es obligatorio")
	} else if err := sefaz.ValidateCNPJ(id.EmitterTaxID); err != nil {
		errs = append(errs, err)
	}
	if id.EmitterName == "" {
		add("Nome_Emitente es obligatorio")
	}
	if id.Address.Street == "" {
		add("Endereco_Emitente.Logradouro es obligatorio")
	}
	if id.Address.Municipality == "" {
		add("Endereco_Emitente.Municipio es obligatorio")
	}
	if id.Address.State == "" {
		add("Endereco_Emitente.UF es obligatorio")
	} else if !sefaz.IsValidUF(id.Address.State) {
		add("Endereco_Emitente.UF %q no es una UF válida", id.Address.State)
	}
	if id.AccessKey != nil {
		if err := sefaz.ValidateAccessKey(*id.AccessKey); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := r.AuthorizationDate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := r.AuthorizationTime(); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, r.checkLengths()...)

	if len(r.Items) == 0 {
		add("la nota debe tener al menos un ítem")
	}
	for i, it := range r.Items {
		errs = append(errs, validateItem(i+1, it)...)
	}

	t := r.Totals
	requireAmount(&errs, "Descontos_Gerais", t.Discounts)
	requireAmount(&errs, "Acrescimos_Gerais", t.Surcharges)
	requireAmount(&errs, "Valor_Total_a_Pagar", t.Payable)
	optionalAmount(&errs, "Valor_Total_Produtos", t.Gross)
	optionalAmount(&errs, "Qtd_Total_Itens", t.ItemCount)
	optionalAmount(&errs, "Total_Tributos_Incidentes", t.Taxes.Total)
	optionalAmount(&errs, "Tributos_Federais", t.Taxes.Federal)
	optionalPercent(&errs, "Percentual_Federais", t.Taxes.FederalPercent)
	optionalAmount(&errs, "Tributos_Estaduais", t.Taxes.State)
	optionalPercent(&errs, "Percentual_Estaduais", t.Taxes.StatePercent)

	if r.Payment.Method == "" {
		add("Forma_Pagamento es obligatorio")
	}
	requireAmount(&errs, "Valor_Pago", r.Payment.Amount)
	optionalAmount(&errs, "Troco", r.Payment.Change)

	// La coherencia de totales solo se evalúa con todos los montos presentes.
	if r.amountsComplete() {
		errs = append(errs, r.checkTotals()...)
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrInvalidRecord}, errs...)...)
	}
	return nil
}

func validateItem(n int, it Item) []error {
	var errs []error
	prefix := fmt.Sprintf("ítem %d: ", n)
	if it.Description == "" {
		errs = append(errs, fmt.Errorf("ítem %d: Descricao es obligatoria", n))
	}
	if it.Unit == "" {
		errs = append(errs, fmt.Errorf("ítem %d: Unidade es obligatoria", n))
	}
	maxLen(&errs, prefix+"Descricao", it.Description, 255)
	maxLen(&errs, prefix+"Unidade", it.Unit, 10)
	maxLenPtr(&errs, prefix+"Codigo_Produto", it.ProductCode, 60)
	requireAmount(&errs, prefix+"Quantidade", it.Quantity)
	requireAmount(&errs, prefix+"Valor_Unitario", it.UnitPrice)
	requireAmount(&errs, prefix+"Valor_Total_Item", it.Total)
	optionalAmount(&errs, prefix+"Desconto_Item", it.Discount)
	if len(errs) > 0 {
		return errs
	}

	expected := it.ExpectedTotal()
	if expected.Sub(*it.Total).Abs().GreaterThan(Tolerance) {
		errs = append(errs, fmt.Errorf("ítem %d: Valor_Total_Item %s no coincide con quantidade × unitário − desconto = %s",
			n, it.Total.StringFixed(2), expected.StringFixed(2)))
	}
	return errs
}

// ExpectedTotal quantidade × valor unitário − desconto, redondeado a centavos.
func (it Item) ExpectedTotal() decimal.Decimal {
	if it.Quantity == nil || it.UnitPrice == nil {
		return decimal.Zero
	}
	return it.Quantity.Mul(*it.UnitPrice).Sub(orZero(it.Discount)).Round(2)
}

// checkTotals payable = gross − descontos + acréscimos, y gross coherente con los ítems.
// Si gross es el valor bruto (Σ qtd × unitário) los descontos de ítem también se restan.
func (r *Record) checkTotals() []error {
	var errs []error
	var sumNet, sumGross, itemDiscounts decimal.Decimal
	for _, it := range r.Items {
		sumNet = sumNet.Add(*it.Total)
		sumGross = sumGross.Add(it.Quantity.Mul(*it.UnitPrice).Round(2))
		itemDiscounts = itemDiscounts.Add(orZero(it.Discount))
	}
	itemTol := Tolerance.Mul(decimal.NewFromInt(int64(max(len(r.Items), 1))))

	t := r.Totals
	base := sumNet
	grossIsPreDiscount := false
	if t.Gross != nil {
		base = *t.Gross
		matchesNet := t.Gross.Sub(sumNet).Abs().LessThanOrEqual(itemTol)
		matchesPre := t.Gross.Sub(sumGross).Abs().LessThanOrEqual(itemTol)
		grossIsPreDiscount = matchesPre && !matchesNet
		if !matchesNet && !matchesPre {
			errs = append(errs, fmt.Errorf("Valor_Total_Produtos %s no coincide con la suma de los ítems (%s)",
				t.Gross.StringFixed(2), sumNet.StringFixed(2)))
		}
	}

	expected := base.Sub(*t.Discounts).Add(*t.Surcharges)
	ok := expected.Sub(*t.Payable).Abs().LessThanOrEqual(Tolerance)
	if !ok && grossIsPreDiscount {
		ok = expected.Sub(itemDiscounts).Sub(*t.Payable).Abs().LessThanOrEqual(Tolerance)
	}
	if !ok {
		errs = append(errs, fmt.Errorf("Valor_Total_a_Pagar %s no coincide con produtos − descontos + acréscimos = %s",
			t.Payable.StringFixed(2), expected.StringFixed(2)))
	}
	return errs
}

// AuthorizationDate interpreta Data_Autorizacao (DD/MM/AAAA, también AAAA-MM-DD).
func (r *Record) AuthorizationDate() (*time.Time, error) {
	s := r.Identification.AuthorizationDate
	if s == nil {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, *s); err == nil {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("Data_Autorizacao %q no tiene formato DD/MM/AAAA", *s)
}

// AuthorizationTime devuelve Hora_Autorizacao normalizada a HH:MM:SS.
func (r *Record) AuthorizationTime() (*string, error) {
	s := r.Identification.AuthorizationTime
	if s == nil {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			v := t.Format("15:04:05")
			return &v, nil
		}
	}
	return nil, fmt.Errorf("Hora_Autorizacao %q no tiene formato HH:MM:SS", *s)
}

// checkLengths límites de las columnas de texto del esquema, en caracteres.
func (r *Record) checkLengths() []error {
	var errs []error
	id := r.Identification
	maxLen(&errs, "Nome_Emitente", id.EmitterName, 255)
	maxLenPtr(&errs, "IE_Emitente", id.StateRegistration, 20)
	maxLenPtr(&errs, "Protocolo_Autorizacao", id.Protocol, 20)
	maxLenPtr(&errs, "Numero_NFCe", id.Number, 20)
	maxLenPtr(&errs, "Serie_NFCe", id.Series, 10)
	maxLenPtr(&errs, "Consumidor", id.Consumer, 255)

	a := id.Address
	maxLen(&errs, "Endereco_Emitente.Logradouro", a.Street, 255)
	maxLenPtr(&errs, "Endereco_Emitente.Numero", a.Number, 20)
	maxLenPtr(&errs, "Endereco_Emitente.Bairro", a.District, 100)
	maxLen(&errs, "Endereco_Emitente.Municipio", a.Municipality, 100)
	maxLenPtr(&errs, "Endereco_Emitente.CEP", a.PostalCode, 8)

	maxLenPtr(&errs, "Fonte_Tributos", r.Totals.Taxes.Source, 100)
	maxLenPtr(&errs, "Lei_Tributos", r.Totals.Taxes.LegalBasis, 100)
	maxLen(&errs, "Forma_Pagamento", r.Payment.Method, 50)
	maxLenPtr(&errs, "Meio_Pagamento_Detalhe", r.Payment.Detail, 255)

	if ad := r.Additional; ad != nil {
		maxLenPtr(&errs, "Caixa", ad.Cashier, 50)
		maxLenPtr(&errs, "Operador", ad.Operator, 100)
		maxLenPtr(&errs, "Vendedor", ad.Salesperson, 100)
	}
	return errs
}

func maxLen(errs *[]error, field, v string, limit int) {
	if n := utf8.RuneCountInString(v); n > limit {
		*errs = append(*errs, fmt.Errorf("%s excede %d caracteres (%d)", field, limit, n))
	}
}

func maxLenPtr(errs *[]error, field string, v *string, limit int) {
	if v != nil {
		maxLen(errs, field, *v, limit)
	}
}

func (r *Record) amountsComplete() bool {
	t := r.Totals
	if len(r.Items) == 0 || t.Discounts == nil || t.Surcharges == nil || t.Payable == nil {
		return false
	}
	for _, it := range r.Items {
		if it.Quantity == nil || it.UnitPrice == nil || it.Total == nil {
			return false
		}
	}
	return true
}

func requireAmount(errs *[]error, field string, v *decimal.Decimal) {
	if v == nil {
		*errs = append(*errs, fmt.Errorf("%s es obligatorio", field))
		return
	}
	optionalAmount(errs, field, v)
}

func optionalAmount(errs *[]error, field string, v *decimal.Decimal) {
	switch {
	case v == nil:
	case v.IsNegative():
		*errs = append(*errs, fmt.Errorf("%s no puede ser negativo (%s)", field, v.String()))
	case v.GreaterThanOrEqual(maxAmount):
		*errs = append(*errs, fmt.Errorf("%s excede el máximo admitido (%s)", field, v.String()))
	}
}

func optionalPercent(errs *[]error, field string, v *decimal.Decimal) {
	optionalAmount(errs, field, v)
	if v != nil && v.GreaterThanOrEqual(maxPercent) && v.LessThan(maxAmount) {
		*errs = append(*errs, fmt.Errorf("%s excede el máximo admitido (%s)", field, v.String()))
	}
}

func orZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}
