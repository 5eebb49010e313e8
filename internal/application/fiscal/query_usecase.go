package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
	"github.com/jhoicas/lentefiscal/pkg/sefaz"
)

// InvoicePage página del listado de notas.
type InvoicePage struct {
	Items  []entity.InvoiceSummary
	Total  int
	Limit  int
	Offset int
}

// HeaderPatch cambios editables de una nota ya registrada. Un campo nil conserva el valor actual.
type HeaderPatch struct {
	AccessKey         *string
	Protocol          *string
	AuthorizationDate *time.Time
	AuthorizationTime *string // HH:MM:SS
	Number            *string
	Series            *string
	Consumer          *string
	Payment           *PaymentPatch
	AdditionalData    *entity.AdditionalData
}

// PaymentPatch cambios del pagamento; Method y Amount vacíos conservan el valor actual.
type PaymentPatch struct {
	Method string
	Amount *decimal.Decimal
	Change *decimal.Decimal
	Detail *string
}

// QueryUseCase lectura y mantenimiento de notas persistidas (portal).
type QueryUseCase struct {
	repos repository.FiscalRepos
	tx    TxRunner
}

// NewQueryUseCase construye el caso de uso. repos debe estar atado al pool (lecturas fuera de tx).
func NewQueryUseCase(repos repository.FiscalRepos, tx TxRunner) *QueryUseCase {
	return &QueryUseCase{repos: repos, tx: tx}
}

// Get devuelve la nota completa o domain.ErrNotFound.
func (uc *QueryUseCase) Get(ctx context.Context, id string) (*entity.InvoiceAggregate, error) {
	return loadAggregate(ctx, uc.repos, id)
}

// List devuelve resúmenes paginados ordenados por fecha de registro descendente.
func (uc *QueryUseCase) List(ctx context.Context, f repository.InvoiceFilter) (*InvoicePage, error) {
	items, total, err := uc.repos.Invoices.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listar notas: %w", err)
	}
	return &InvoicePage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// UpdateHeader aplica el patch sobre cabecera, pagamento y dados adicionais en una transacción.
func (uc *QueryUseCase) UpdateHeader(ctx context.Context, id string, p HeaderPatch) (*entity.InvoiceAggregate, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var out *entity.InvoiceAggregate
	err := uc.tx.RunFiscal(ctx, func(r repository.FiscalRepos) error {
		agg, err := loadAggregate(ctx, r, id)
		if err != nil {
			return err
		}
		inv := &agg.Invoice
		setIfPresent(&inv.AccessKey, p.AccessKey)
		setIfPresent(&inv.Protocol, p.Protocol)
		setIfPresent(&inv.AuthorizationTime, p.AuthorizationTime)
		setIfPresent(&inv.Number, p.Number)
		setIfPresent(&inv.Series, p.Series)
		setIfPresent(&inv.Consumer, p.Consumer)
		if p.AuthorizationDate != nil {
			inv.AuthorizationDate = p.AuthorizationDate
		}

		if pp := p.Payment; pp != nil {
			if pp.Method != "" {
				agg.Payment.Method = pp.Method
			}
			if pp.Amount != nil {
				agg.Payment.Amount = pp.Amount.Round(2)
			}
			if pp.Change != nil {
				change := pp.Change.Round(2)
				agg.Payment.Change = &change
			}
			setIfPresent(&agg.Payment.Detail, pp.Detail)
			if err := r.Payments.Update(ctx, &agg.Payment); err != nil {
				return err
			}
		}

		if ad := p.AdditionalData; ad != nil {
			if agg.AdditionalData == nil {
				fresh := &entity.AdditionalData{Cashier: ad.Cashier, Operator: ad.Operator, Salesperson: ad.Salesperson}
				if err := r.AdditionalData.Create(ctx, fresh); err != nil {
					return err
				}
				agg.AdditionalData = fresh
				inv.AdditionalDataID = &fresh.ID
			} else {
				setIfPresent(&agg.AdditionalData.Cashier, ad.Cashier)
				setIfPresent(&agg.AdditionalData.Operator, ad.Operator)
				setIfPresent(&agg.AdditionalData.Salesperson, ad.Salesperson)
				if err := r.AdditionalData.Update(ctx, agg.AdditionalData); err != nil {
					return err
				}
			}
		}

		if err := r.Invoices.UpdateHeader(ctx, inv); err != nil {
			return err
		}
		out = agg
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: actualizar nota: %w", domain.ErrPersistence, err)
	}
	return out, nil
}

// Delete elimina la nota y sus ítems. Emitente, totais y pagamento no se tocan.
func (uc *QueryUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.repos.Invoices.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: eliminar nota: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (p HeaderPatch) validate() error {
	if p.AccessKey != nil {
		if err := sefaz.ValidateAccessKey(*p.AccessKey); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	if p.AuthorizationTime != nil {
		if _, err := time.Parse("15:04:05", *p.AuthorizationTime); err != nil {
			return fmt.Errorf("%w: hora de autorización %q no tiene formato HH:MM:SS", domain.ErrInvalidInput, *p.AuthorizationTime)
		}
	}
	if pp := p.Payment; pp != nil {
		for name, v := range map[string]*decimal.Decimal{"valor pago": pp.Amount, "troco": pp.Change} {
			if v != nil && v.IsNegative() {
				return fmt.Errorf("%w: %s no puede ser negativo", domain.ErrInvalidInput, name)
			}
		}
	}
	return nil
}

// loadAggregate arma la nota completa a partir de sus tablas.
func loadAggregate(ctx context.Context, r repository.FiscalRepos, id string) (*entity.InvoiceAggregate, error) {
	inv, err := r.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	agg := &entity.InvoiceAggregate{Invoice: *inv}

	em, err := r.Emitters.GetByID(ctx, inv.EmitterID)
	if err != nil {
		return nil, err
	}
	if em == nil {
		return nil, fmt.Errorf("nota %s: emitente %s inexistente", id, inv.EmitterID)
	}
	agg.Emitter = *em

	addr, err := r.Addresses.GetByID(ctx, em.AddressID)
	if err != nil {
		return nil, err
	}
	if addr != nil {
		agg.Address = *addr
	}

	totals, err := r.Totals.GetByID(ctx, inv.TotalsID)
	if err != nil {
		return nil, err
	}
	if totals == nil {
		return nil, fmt.Errorf("nota %s: totais %s inexistentes", id, inv.TotalsID)
	}
	agg.Totals = *totals

	taxes, err := r.TaxSummaries.GetByID(ctx, totals.TaxSummaryID)
	if err != nil {
		return nil, err
	}
	if taxes != nil {
		agg.TaxSummary = *taxes
	}

	pay, err := r.Payments.GetByID(ctx, inv.PaymentID)
	if err != nil {
		return nil, err
	}
	if pay == nil {
		return nil, fmt.Errorf("nota %s: pagamento %s inexistente", id, inv.PaymentID)
	}
	agg.Payment = *pay

	if inv.AdditionalDataID != nil {
		agg.AdditionalData, err = r.AdditionalData.GetByID(ctx, *inv.AdditionalDataID)
		if err != nil {
			return nil, err
		}
	}

	agg.Items, err = r.Items.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func setIfPresent(dst **string, v *string) {
	if v != nil {
		s := *v
		*dst = &s
	}
}
