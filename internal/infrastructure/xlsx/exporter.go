// Package xlsx exporta notas persistidas a una planilla (hoja Notas + hoja Itens).
package xlsx

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
)

var _ fiscal.InvoiceSpreadsheet = (*Exporter)(nil)

// Nombres de las hojas.
const (
	SheetInvoices = "Notas"
	SheetItems    = "Itens"
)

var (
	invoiceHeader = []any{
		"ID", "Chave de acesso", "Número", "Série", "Data autorização", "Hora autorização",
		"CNPJ emitente", "Emitente", "UF", "Município", "Qtd itens", "Valor produtos",
		"Descontos", "Acréscimos", "Valor a pagar", "Forma pagamento", "Valor pago", "Troco",
		"Tributos aprox.", "Objeto origem", "Registrada em",
	}
	itemHeader = []any{
		"ID nota", "Chave de acesso", "Nº item", "Código", "Descrição", "Quantidade",
		"Unidade", "Valor unitário", "Desconto", "Valor total",
	}
)

// Exporter implementa fiscal.InvoiceSpreadsheet con excelize.
type Exporter struct{}

// NewExporter construye el exportador.
func NewExporter() *Exporter { return &Exporter{} }

// Export arma el libro y devuelve sus bytes.
func (e *Exporter) Export(ctx context.Context, invoices []entity.InvoiceAggregate) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetInvoices); err != nil {
		return nil, fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return nil, fmt.Errorf("xlsx: crear hoja %s: %w", SheetItems, err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}

	if err := writeHeader(f, SheetInvoices, invoiceHeader, header); err != nil {
		return nil, err
	}
	if err := writeHeader(f, SheetItems, itemHeader, header); err != nil {
		return nil, err
	}

	itemRow := 2
	for i, agg := range invoices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetInvoices, cell, ptr(invoiceRow(agg))); err != nil {
			return nil, fmt.Errorf("xlsx: fila de nota %d: %w", i+1, err)
		}
		for _, it := range agg.Items {
			cell, _ := excelize.CoordinatesToCellName(1, itemRow)
			if err := f.SetSheetRow(SheetItems, cell, ptr(itemRowValues(agg.Invoice, it))); err != nil {
				return nil, fmt.Errorf("xlsx: fila de ítem %d: %w", itemRow, err)
			}
			itemRow++
		}
	}

	if len(invoices) > 0 {
		_ = f.SetCellStyle(SheetInvoices, "L2", fmt.Sprintf("S%d", len(invoices)+1), money)
	}
	if itemRow > 2 {
		_ = f.SetCellStyle(SheetItems, "H2", fmt.Sprintf("J%d", itemRow-1), money)
	}
	_ = f.SetColWidth(SheetInvoices, "B", "B", 48)
	_ = f.SetColWidth(SheetInvoices, "H", "H", 36)
	_ = f.SetColWidth(SheetItems, "E", "E", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: serializar libro: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, values []any, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return fmt.Errorf("xlsx: cabecera de %s: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(values), 1)
	_ = f.SetCellStyle(sheet, "A1", last, style)
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func invoiceRow(agg entity.InvoiceAggregate) []any {
	inv := agg.Invoice
	date := ""
	if inv.AuthorizationDate != nil {
		date = inv.AuthorizationDate.Format("02/01/2006")
	}
	return []any{
		inv.ID, str(inv.AccessKey), str(inv.Number), str(inv.Series), date, str(inv.AuthorizationTime),
		agg.Emitter.TaxID, agg.Emitter.Name, agg.Address.State, agg.Address.Municipality,
		agg.Totals.ItemCount, num(agg.Totals.Gross),
		agg.Totals.Discounts.InexactFloat64(), agg.Totals.Surcharges.InexactFloat64(),
		agg.Totals.Payable.InexactFloat64(), agg.Payment.Method, agg.Payment.Amount.InexactFloat64(),
		num(agg.Payment.Change), num(agg.TaxSummary.Total), str(inv.SourceObject),
		inv.RegisteredAt.Format("2006-01-02 15:04:05"),
	}
}

func itemRowValues(inv entity.Invoice, it entity.Item) []any {
	return []any{
		inv.ID, str(inv.AccessKey), it.Number, str(it.ProductCode), it.Description,
		it.Quantity.InexactFloat64(), it.Unit, it.UnitPrice.InexactFloat64(),
		num(it.Discount), it.Total.InexactFloat64(),
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// num deja la celda vacía para montos ausentes.
func num(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.InexactFloat64()
}

func ptr[T any](v T) *T { return &v }
