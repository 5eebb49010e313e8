package fiscal

import (
	"context"

	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción con los repos fiscales atados a ella.
type TxRunner interface {
	RunFiscal(ctx context.Context, fn func(repos repository.FiscalRepos) error) error
}

// InvoicePDFGenerator genera el resumen imprimible de una nota.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, agg *entity.InvoiceAggregate) ([]byte, error)
}

// InvoiceSpreadsheet exporta notas completas a una planilla.
type InvoiceSpreadsheet interface {
	Export(ctx context.Context, invoices []entity.InvoiceAggregate) ([]byte, error)
}
