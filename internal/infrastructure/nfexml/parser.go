// Package nfexml lee el XML autorizado de una NF-e/NFC-e (nfeProc o NFe suelto) y lo
// traduce al mismo nfe.Record que produce la extracción por visión.
package nfexml

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

var _ ports.DocumentExtractor = (*Parser)(nil)

// Tributos aproximados de la Lei 12.741 tal como suelen venir en infCpl.
var (
	federalRe = regexp.MustCompile(`(?i)R\$\s*([\d.]+,\d{2})\s*Federa`)
	stateRe   = regexp.MustCompile(`(?i)R\$\s*([\d.]+,\d{2})\s*Estadua`)
	sourceRe  = regexp.MustCompile(`(?i)Fonte:?\s*([A-Za-z]+)`)
)

// surchargeTags componentes de ICMSTot que suman al valor de la nota.
var surchargeTags = []string{"vFrete", "vSeg", "vOutro", "vST", "vFCPST", "vII", "vIPI", "vIPIDevol"}

// Parser extractor determinista para XML de NF-e (layout 4.00).
type Parser struct{}

// NewParser devuelve el parser; no tiene estado.
func NewParser() *Parser { return &Parser{} }

// Extract implementa ports.DocumentExtractor. Un XML que no es NF-e envuelve domain.ErrMalformedResponse.
func (p *Parser) Extract(ctx context.Context, data []byte, _ string) (*nfe.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	return Parse(data)
}

// Parse traduce el XML a nfe.Record sin normalizar.
func Parse(data []byte) (*nfe.Record, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: xml: %w", domain.ErrMalformedResponse, err)
	}
	inf := doc.FindElement("//infNFe")
	if inf == nil {
		return nil, fmt.Errorf("%w: xml sin infNFe", domain.ErrMalformedResponse)
	}

	rec := &nfe.Record{}
	var errs []string
	num := func(el *etree.Element, path string) *decimal.Decimal {
		v, err := amount(el, path)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	readIdentification(doc, inf, rec)

	for _, det := range inf.SelectElements("det") {
		prod := det.SelectElement("prod")
		if prod == nil {
			errs = append(errs, fmt.Sprintf("det %s sin prod", det.SelectAttrValue("nItem", "?")))
			continue
		}
		gross := num(prod, "vProd")
		discount := num(prod, "vDesc")
		item := nfe.Item{
			ProductCode: optional(text(prod, "cProd")),
			Description: text(prod, "xProd"),
			Quantity:    num(prod, "qCom"),
			Unit:        text(prod, "uCom"),
			UnitPrice:   num(prod, "vUnCom"),
			Discount:    discount,
		}
		if n, err := decimal.NewFromString(det.SelectAttrValue("nItem", "")); err == nil {
			item.Number = &n
		}
		if gross != nil {
			total := *gross
			if discount != nil {
				total = total.Sub(*discount)
			}
			item.Total = &total
		}
		rec.Items = append(rec.Items, item)
	}

	tot := inf.FindElement("total/ICMSTot")
	if tot == nil {
		return nil, fmt.Errorf("%w: xml sin total/ICMSTot", domain.ErrMalformedResponse)
	}
	count := decimal.NewFromInt(int64(len(rec.Items)))
	surcharges := decimal.Zero
	for _, tag := range surchargeTags {
		if v := num(tot, tag); v != nil {
			surcharges = surcharges.Add(*v)
		}
	}
	discounts := num(tot, "vDesc")
	if discounts == nil {
		discounts = ptr(decimal.Zero)
	}
	rec.Totals = nfe.Totals{
		ItemCount:  &count,
		Gross:      num(tot, "vProd"),
		Discounts:  discounts,
		Surcharges: &surcharges,
		Payable:    num(tot, "vNF"),
		Taxes:      readTaxes(inf, num(tot, "vTotTrib")),
	}

	readPayment(inf, rec, num)

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: xml: %s", domain.ErrMalformedResponse, strings.Join(errs, "; "))
	}
	return rec, nil
}

func readIdentification(doc *etree.Document, inf *etree.Element, rec *nfe.Record) {
	id := &rec.Identification
	emit := inf.SelectElement("emit")
	id.EmitterTaxID = text(emit, "CNPJ")
	id.EmitterName = text(emit, "xNome")
	id.StateRegistration = optional(text(emit, "IE"))
	if addr := child(emit, "enderEmit"); addr != nil {
		id.Address = nfe.Address{
			Street:       text(addr, "xLgr"),
			Number:       optional(text(addr, "nro")),
			District:     optional(text(addr, "xBairro")),
			Municipality: text(addr, "xMun"),
			State:        text(addr, "UF"),
			PostalCode:   optional(text(addr, "CEP")),
		}
	}

	ide := inf.SelectElement("ide")
	id.Number = optional(text(ide, "nNF"))
	id.Series = optional(text(ide, "serie"))
	if dest := child(inf, "dest"); dest != nil {
		id.Consumer = optional(firstNonEmpty(text(dest, "xNome"), text(dest, "CPF"), text(dest, "CNPJ")))
	}

	key := strings.TrimPrefix(inf.SelectAttrValue("Id", ""), "NFe")
	stamp := text(ide, "dhEmi")
	if prot := doc.FindElement("//protNFe/infProt"); prot != nil {
		key = firstNonEmpty(text(prot, "chNFe"), key)
		stamp = firstNonEmpty(text(prot, "dhRecbto"), stamp)
		id.Protocol = optional(text(prot, "nProt"))
	}
	id.AccessKey = optional(key)
	if t, err := time.Parse(time.RFC3339, stamp); err == nil {
		id.AuthorizationDate = ptr(t.Format("02/01/2006"))
		id.AuthorizationTime = ptr(t.Format("15:04:05"))
	}
}

func readTaxes(inf *etree.Element, total *decimal.Decimal) nfe.Taxes {
	taxes := nfe.Taxes{Total: total}
	cpl := text(inf, "infAdic/infCpl")
	if cpl == "" {
		return taxes
	}
	if m := federalRe.FindStringSubmatch(cpl); m != nil {
		taxes.Federal = brazilianAmount(m[1])
	}
	if m := stateRe.FindStringSubmatch(cpl); m != nil {
		taxes.State = brazilianAmount(m[1])
	}
	if m := sourceRe.FindStringSubmatch(cpl); m != nil {
		taxes.Source = ptr(strings.ToUpper(m[1]))
	}
	if strings.Contains(cpl, "12.741") {
		taxes.LegalBasis = ptr("Lei Federal 12.741/2012")
	}
	return taxes
}

func readPayment(inf *etree.Element, rec *nfe.Record, num func(*etree.Element, string) *decimal.Decimal) {
	pag := inf.SelectElement("pag")
	if pag == nil {
		return
	}
	details := pag.SelectElements("detPag")
	paid := decimal.Zero
	for i, d := range details {
		if v := num(d, "vPag"); v != nil {
			paid = paid.Add(*v)
		}
		if i == 0 {
			rec.Payment.Method = text(d, "tPag")
			rec.Payment.Detail = optional(text(d, "xPag"))
		}
	}
	if len(details) > 0 {
		rec.Payment.Amount = &paid
	}
	if len(details) > 1 {
		rec.Payment.Detail = ptr(fmt.Sprintf("%d formas de pagamento", len(details)))
	}
	rec.Payment.Change = num(pag, "vTroco")
}

func child(el *etree.Element, path string) *etree.Element {
	if el == nil {
		return nil
	}
	return el.FindElement(path)
}

func text(el *etree.Element, path string) string {
	if c := child(el, path); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

// amount lee un valor decimal del XML (punto como separador); ausente → nil.
func amount(el *etree.Element, path string) (*decimal.Decimal, error) {
	s := text(el, path)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%s %q no es numérico", path, s)
	}
	return &d, nil
}

// brazilianAmount interpreta "1.234,56".
func brazilianAmount(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", "."))
	if err != nil {
		return nil
	}
	return &d
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func ptr[T any](v T) *T { return &v }
