// Package pdf genera el resumen imprimible (estilo DANFE NFC-e) de una nota persistida.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social + CNPJ/IE  │  NFC-e N° / Serie / Fecha │
//	│  ENDEREÇO del emitente                                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Código | Descrição | Qtd | Un | Vl Unit | Total   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES + PAGAMENTO                                         │
//	│  TRIBUTOS (Lei 12.741/2012)                                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: chave de acesso + protocolo + QR                   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/pkg/sefaz"
)

var _ fiscal.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 92, Blue: 62}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa fiscal.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, agg *entity.InvoiceAggregate) ([]byte, error) {
	if agg == nil {
		return nil, fmt.Errorf("pdf: nota nula")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Resumo NFC-e", true).
		WithAuthor(agg.Emitter.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(agg))
	m.AddRows(addressRow(agg.Address))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(agg.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(agg)...)
	if r := taxesRow(agg.TaxSummary); r != nil {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(agg.Invoice)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + CNPJ (izq) y número/serie/fecha (der).
func headerRow(agg *entity.InvoiceAggregate) core.Row {
	inv := agg.Invoice
	number := "NFC-e Nº " + deref(inv.Number, "—") + "   Série " + deref(inv.Series, "—")
	date := "—"
	if inv.AuthorizationDate != nil {
		date = inv.AuthorizationDate.Format("02/01/2006")
		if inv.AuthorizationTime != nil {
			date += " " + *inv.AuthorizationTime
		}
	}
	taxID := "CNPJ: " + sefaz.FormatCNPJ(agg.Emitter.TaxID)
	if agg.Emitter.StateRegistration != nil {
		taxID += "   IE: " + *agg.Emitter.StateRegistration
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(agg.Emitter.Name, props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New(taxID, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("DOCUMENTO AUXILIAR DA NOTA FISCAL", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(number, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 7}),
			text.New("Autorização: "+date, props.Text{Size: 8, Align: align.Right, Top: 13, Color: colorGray}),
		),
	)
}

func addressRow(a entity.Address) core.Row {
	parts := []string{a.Street}
	if a.Number != nil {
		parts[0] += ", " + *a.Number
	}
	if a.District != nil {
		parts = append(parts, *a.District)
	}
	parts = append(parts, a.Municipality+"/"+a.State)
	if a.PostalCode != nil {
		parts = append(parts, "CEP "+*a.PostalCode)
	}
	return row.New(7).Add(col.New(12).Add(
		text.New(strings.Join(parts, " - "), props.Text{Size: 8, Top: 1, Color: colorGray}),
	))
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Código", 2, align.Left),
		h("Descrição", 4, align.Left),
		h("Qtd", 1, align.Right),
		h("Un", 1, align.Center),
		h("Vl Unit", 1, align.Right),
		h("Vl Total", 2, align.Right),
	)
}

// itemRows: una fila por ítem, en el orden de la nota.
func itemRows(items []entity.Item) []core.Row {
	result := make([]core.Row, 0, len(items))
	cell := func(s string, a align.Type) core.Component {
		return text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1})
	}
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(cell(fmt.Sprintf("%d", it.Number), align.Center)),
			col.New(2).Add(cell(deref(it.ProductCode, ""), align.Left)),
			col.New(4).Add(cell(it.Description, align.Left)),
			col.New(1).Add(cell(formatQuantity(it.Quantity), align.Right)),
			col.New(1).Add(cell(it.Unit, align.Center)),
			col.New(1).Add(cell(formatMoney(it.UnitPrice), align.Right)),
			col.New(2).Add(cell(formatMoney(it.Total), align.Right)),
		))
	}
	return result
}

// totalsRows: pares etiqueta/valor alineados a la derecha.
func totalsRows(agg *entity.InvoiceAggregate) []core.Row {
	t := agg.Totals
	p := agg.Payment
	type pair struct {
		label string
		value string
		grand bool
	}
	pairs := []pair{{label: "Qtd. total de itens", value: fmt.Sprintf("%d", t.ItemCount)}}
	if t.Gross != nil {
		pairs = append(pairs, pair{label: "Valor total R$", value: formatMoney(*t.Gross)})
	}
	pairs = append(pairs,
		pair{label: "Descontos R$", value: formatMoney(t.Discounts)},
		pair{label: "Acréscimos R$", value: formatMoney(t.Surcharges)},
		pair{label: "VALOR A PAGAR R$", value: formatMoney(t.Payable), grand: true},
		pair{label: "Forma de pagamento", value: p.Method},
		pair{label: "Valor pago R$", value: formatMoney(p.Amount)},
	)
	if p.Change != nil {
		pairs = append(pairs, pair{label: "Troco R$", value: formatMoney(*p.Change)})
	}

	rows := make([]core.Row, 0, len(pairs))
	for _, pr := range pairs {
		style := props.Text{Size: 9, Align: align.Right, Right: 1}
		if pr.grand {
			style = props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1}
		}
		labelStyle := style
		labelStyle.Style = fontstyle.Bold
		rows = append(rows, row.New(5).Add(
			col.New(6),
			col.New(3).Add(text.New(pr.label, labelStyle)),
			col.New(3).Add(text.New(pr.value, style)),
		))
	}
	return rows
}

// taxesRow: tributos aproximados; nil si la nota no los trae.
func taxesRow(ts entity.TaxSummary) core.Row {
	if ts.Total == nil && ts.Federal == nil && ts.State == nil {
		return nil
	}
	var parts []string
	if ts.Total != nil {
		parts = append(parts, "Tributos totais incidentes R$ "+formatMoney(*ts.Total))
	}
	if ts.Federal != nil {
		parts = append(parts, "Federais R$ "+formatMoney(*ts.Federal))
	}
	if ts.State != nil {
		parts = append(parts, "Estaduais R$ "+formatMoney(*ts.State))
	}
	if ts.Source != nil {
		parts = append(parts, "Fonte: "+*ts.Source)
	}
	return row.New(8).Add(col.New(12).Add(
		text.New(strings.Join(parts, "   |   "), props.Text{Size: 7, Top: 3, Color: colorGray}),
	))
}

// footerRows: chave de acesso en bloques + protocolo + QR de la chave.
func footerRows(inv entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("CONSULTE PELA CHAVE DE ACESSO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}
	if inv.AccessKey == nil {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New("Chave de acesso não informada no documento de origem.", props.Text{Size: 8, Color: colorGray, Top: 1}),
		)))
		return rows
	}

	protocol := "Protocolo de autorização: " + deref(inv.Protocol, "—")
	rows = append(rows, row.New(40).Add(
		col.New(4).Add(code.NewQr(*inv.AccessKey, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New(sefaz.FormatAccessKey(*inv.AccessKey), props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 6, Left: 3,
			}),
			text.New(protocol, props.Text{Size: 8, Top: 14, Left: 3, Color: colorGray}),
			text.New("Resumo gerado a partir dos dados extraídos; não substitui o DANFE oficial.", props.Text{
				Size: 7, Top: 24, Left: 3, Color: colorGray,
			}),
		),
	))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func deref(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}

// formatMoney formatea en reales con punto de miles y coma decimal.
// Ej: 1234.5 → "1.234,50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(intPart) + "," + frac
}

// formatQuantity muestra hasta 4 decimales sin ceros sobrantes ("2", "0,755").
func formatQuantity(d decimal.Decimal) string {
	return strings.ReplaceAll(d.Round(4).String(), ".", ",")
}

// groupThousands inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
