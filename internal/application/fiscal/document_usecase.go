package fiscal

import (
	"context"
	"fmt"

	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

// maxExportRows límite de notas por exportación XLSX.
const maxExportRows = 5000

// DocumentUseCase genera representaciones descargables de las notas (PDF y XLSX).
type DocumentUseCase struct {
	query       *QueryUseCase
	pdf         InvoicePDFGenerator
	spreadsheet InvoiceSpreadsheet
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(query *QueryUseCase, pdf InvoicePDFGenerator, spreadsheet InvoiceSpreadsheet) *DocumentUseCase {
	return &DocumentUseCase{query: query, pdf: pdf, spreadsheet: spreadsheet}
}

// RenderPDF devuelve el PDF resumen de la nota y un nombre de archivo sugerido.
//
// Retorna domain.ErrNotFound si la nota no existe.
func (uc *DocumentUseCase) RenderPDF(ctx context.Context, id string) (pdfBytes []byte, filename string, err error) {
	agg, err := uc.query.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = uc.pdf.GenerateInvoicePDF(ctx, agg)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, documentName(agg) + ".pdf", nil
}

// ExportXLSX exporta las notas que cumplen el filtro (hasta maxExportRows) con sus ítems.
func (uc *DocumentUseCase) ExportXLSX(ctx context.Context, f repository.InvoiceFilter) ([]byte, error) {
	var all []entity.InvoiceAggregate
	f.Offset = 0
	f.Limit = 500
	for len(all) < maxExportRows {
		page, err := uc.query.List(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, s := range page.Items {
			agg, err := uc.query.Get(ctx, s.ID)
			if err != nil {
				return nil, fmt.Errorf("exportar nota %s: %w", s.ID, err)
			}
			all = append(all, *agg)
		}
		if len(page.Items) < f.Limit {
			break
		}
		f.Offset += f.Limit
	}
	if len(all) > maxExportRows {
		all = all[:maxExportRows]
	}
	data, err := uc.spreadsheet.Export(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("xlsx: exportación fallida: %w", err)
	}
	return data, nil
}

func documentName(agg *entity.InvoiceAggregate) string {
	if agg.Invoice.AccessKey != nil {
		return "nfe_" + *agg.Invoice.AccessKey
	}
	if agg.Invoice.Number != nil {
		return fmt.Sprintf("nfe_%s_%s", agg.Emitter.TaxID, *agg.Invoice.Number)
	}
	return "nfe_" + agg.Invoice.ID
}
