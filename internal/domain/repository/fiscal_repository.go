package repository

import (
	"context"
	"time"

	"github.com/jhoicas/lentefiscal/internal/domain/entity"
)

// AddressRepository define el puerto de persistencia para endereco.
type AddressRepository interface {
	Create(ctx context.Context, addr *entity.Address) error
	Update(ctx context.Context, addr *entity.Address) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Address, error)
}

// EmitterRepository define el puerto de persistencia para emitente.
type EmitterRepository interface {
	// GetByTaxID devuelve nil, nil si el CNPJ no existe. Bloquea la fila hasta el fin de la tx.
	GetByTaxID(ctx context.Context, taxID string) (*entity.Emitter, error)
	GetByID(ctx context.Context, id string) (*entity.Emitter, error)
	// Upsert inserta por CNPJ o actualiza nombre/IE del existente.
	// Completa ID y AddressID con los valores que quedaron en la tabla.
	Upsert(ctx context.Context, e *entity.Emitter) error
}

// TaxSummaryRepository define el puerto de persistencia para tributos.
type TaxSummaryRepository interface {
	Create(ctx context.Context, t *entity.TaxSummary) error
	GetByID(ctx context.Context, id string) (*entity.TaxSummary, error)
}

// TotalsRepository define el puerto de persistencia para totais.
type TotalsRepository interface {
	Create(ctx context.Context, t *entity.Totals) error
	GetByID(ctx context.Context, id string) (*entity.Totals, error)
}

// PaymentRepository define el puerto de persistencia para pagamento.
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	Update(ctx context.Context, p *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
}

// AdditionalDataRepository define el puerto de persistencia para dados_adicionais.
type AdditionalDataRepository interface {
	Create(ctx context.Context, d *entity.AdditionalData) error
	Update(ctx context.Context, d *entity.AdditionalData) error
	GetByID(ctx context.Context, id string) (*entity.AdditionalData, error)
}

// InvoiceFilter filtros del listado de notas. Campos vacíos no filtran.
type InvoiceFilter struct {
	EmitterTaxID string
	EmitterName  string // coincidencia parcial, sin distinguir mayúsculas
	AccessKey    string
	From         *time.Time // data_registro >= From
	To           *time.Time // data_registro < To
	Limit        int
	Offset       int
}

// InvoiceRepository define el puerto de persistencia para nfe.
type InvoiceRepository interface {
	// Create devuelve domain.ErrDuplicate si la chave de acesso ya existe.
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// FindIDByAccessKey devuelve "" si no hay nota con esa chave.
	FindIDByAccessKey(ctx context.Context, accessKey string) (string, error)
	UpdateHeader(ctx context.Context, inv *entity.Invoice) error
	// Delete elimina la nota y sus ítems (cascade). domain.ErrNotFound si no existe.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f InvoiceFilter) ([]entity.InvoiceSummary, int, error)
}

// ItemRepository define el puerto de persistencia para item.
type ItemRepository interface {
	CreateBatch(ctx context.Context, invoiceID string, items []entity.Item) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]entity.Item, error)
}

// FiscalRepos repositorios atados a una misma transacción.
type FiscalRepos struct {
	Addresses      AddressRepository
	Emitters       EmitterRepository
	TaxSummaries   TaxSummaryRepository
	Totals         TotalsRepository
	Payments       PaymentRepository
	AdditionalData AdditionalDataRepository
	Invoices       InvoiceRepository
	Items          ItemRepository
}
