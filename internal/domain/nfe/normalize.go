package nfe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/lentefiscal/pkg/sefaz"
)

// Normalize limpia el registro en sitio: recorta textos, deja solo dígitos en CNPJ/CEP/chave,
// pasa UF y municipio a mayúsculas sin acentos y convierte opcionales vacíos en nil.
func (r *Record) Normalize() {
	id := &r.Identification
	id.EmitterTaxID = sefaz.OnlyDigits(id.EmitterTaxID)
	id.EmitterName = collapseSpaces(id.EmitterName)
	id.StateRegistration = optional(id.StateRegistration)
	id.AccessKey = optionalDigits(id.AccessKey)
	id.Protocol = optional(id.Protocol)
	id.AuthorizationDate = optional(id.AuthorizationDate)
	id.AuthorizationTime = optional(id.AuthorizationTime)
	id.Number = optional(id.Number)
	id.Series = optional(id.Series)
	id.Consumer = optional(id.Consumer)

	addr := &id.Address
	addr.Street = collapseSpaces(addr.Street)
	addr.Number = optional(addr.Number)
	addr.District = optional(addr.District)
	addr.Municipality = FoldText(addr.Municipality)
	addr.State = strings.ToUpper(strings.TrimSpace(addr.State))
	addr.PostalCode = optionalDigits(addr.PostalCode)

	for i := range r.Items {
		it := &r.Items[i]
		it.ProductCode = optional(it.ProductCode)
		it.Description = collapseSpaces(it.Description)
		it.Unit = strings.ToUpper(strings.TrimSpace(it.Unit))
	}

	r.Totals.Taxes.Source = optional(r.Totals.Taxes.Source)
	r.Totals.Taxes.LegalBasis = optional(r.Totals.Taxes.LegalBasis)

	r.Payment.Method = strings.TrimSpace(r.Payment.Method)
	if len(r.Payment.Method) == 2 && sefaz.OnlyDigits(r.Payment.Method) == r.Payment.Method {
		r.Payment.Method = sefaz.PaymentMethodName(r.Payment.Method)
	}
	r.Payment.Detail = optional(r.Payment.Detail)

	if a := r.Additional; a != nil {
		a.Cashier = optional(a.Cashier)
		a.Operator = optional(a.Operator)
		a.Salesperson = optional(a.Salesperson)
		if a.Cashier == nil && a.Operator == nil && a.Salesperson == nil {
			r.Additional = nil
		}
	}
}

// FoldText pasa a mayúsculas y elimina diacríticos ("São Paulo" → "SAO PAULO").
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(collapseSpaces(out))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func optional(p *string) *string {
	if p == nil {
		return nil
	}
	v := collapseSpaces(*p)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

func optionalDigits(p *string) *string {
	if p == nil {
		return nil
	}
	v := sefaz.OnlyDigits(*p)
	if v == "" {
		return nil
	}
	return &v
}
