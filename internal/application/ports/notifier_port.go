package ports

import (
	"context"

	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

// ProcessedInvoice aviso que se emite tras persistir una nota.
type ProcessedInvoice struct {
	InvoiceID string
	Created   bool
	Bucket    string
	Key       string
	Record    *nfe.Record
}

// Notifier avisa a sistemas externos (ERP) de una nota procesada.
// Un fallo no cambia el resultado del archivo; el llamador solo lo registra.
type Notifier interface {
	NotifyProcessed(ctx context.Context, inv ProcessedInvoice) error
}
