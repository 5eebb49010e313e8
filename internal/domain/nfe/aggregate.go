package nfe

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
)

// Aggregate traduce el registro (ya normalizado y validado) a las entidades persistibles.
// Los IDs quedan vacíos: los asigna el repositorio. Los ítems se numeran por su posición.
func (r *Record) Aggregate() (*entity.InvoiceAggregate, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	authDate, _ := r.AuthorizationDate()
	authTime, _ := r.AuthorizationTime()

	id := r.Identification
	agg := &entity.InvoiceAggregate{
		Invoice: entity.Invoice{
			AccessKey:         id.AccessKey,
			Protocol:          id.Protocol,
			AuthorizationDate: authDate,
			AuthorizationTime: authTime,
			Number:            id.Number,
			Series:            id.Series,
			Consumer:          id.Consumer,
		},
		Emitter: entity.Emitter{
			TaxID:             id.EmitterTaxID,
			Name:              id.EmitterName,
			StateRegistration: id.StateRegistration,
		},
		Address: entity.Address{
			Street:       id.Address.Street,
			Number:       id.Address.Number,
			District:     id.Address.District,
			Municipality: id.Address.Municipality,
			State:        id.Address.State,
			PostalCode:   id.Address.PostalCode,
		},
		TaxSummary: entity.TaxSummary{
			Total:          money(r.Totals.Taxes.Total),
			Federal:        money(r.Totals.Taxes.Federal),
			FederalPercent: r.Totals.Taxes.FederalPercent,
			State:          money(r.Totals.Taxes.State),
			StatePercent:   r.Totals.Taxes.StatePercent,
			Source:         r.Totals.Taxes.Source,
			LegalBasis:     r.Totals.Taxes.LegalBasis,
		},
		Totals: entity.Totals{
			ItemCount:  len(r.Items),
			Gross:      money(r.Totals.Gross),
			Discounts:  r.Totals.Discounts.Round(2),
			Surcharges: r.Totals.Surcharges.Round(2),
			Payable:    r.Totals.Payable.Round(2),
		},
		Payment: entity.Payment{
			Method: r.Payment.Method,
			Amount: r.Payment.Amount.Round(2),
			Change: money(r.Payment.Change),
			Detail: r.Payment.Detail,
		},
	}
	if r.Totals.ItemCount != nil {
		agg.Totals.ItemCount = int(r.Totals.ItemCount.IntPart())
	}
	if a := r.Additional; a != nil {
		agg.AdditionalData = &entity.AdditionalData{Cashier: a.Cashier, Operator: a.Operator, Salesperson: a.Salesperson}
	}

	agg.Items = make([]entity.Item, 0, len(r.Items))
	for i, it := range r.Items {
		agg.Items = append(agg.Items, entity.Item{
			Number:      i + 1,
			ProductCode: it.ProductCode,
			Description: it.Description,
			Quantity:    it.Quantity.Round(4),
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice.Round(2),
			Discount:    money(it.Discount),
			Total:       it.Total.Round(2),
		})
	}
	if len(agg.Items) == 0 {
		return nil, fmt.Errorf("%w: sin ítems", domain.ErrInvalidRecord)
	}
	return agg, nil
}

// FromAggregate reconstruye el registro a partir de lo persistido (formato del sobre NFe).
func FromAggregate(agg *entity.InvoiceAggregate) *Record {
	inv := agg.Invoice
	rec := &Record{
		Identification: Identification{
			EmitterTaxID:      agg.Emitter.TaxID,
			EmitterName:       agg.Emitter.Name,
			StateRegistration: agg.Emitter.StateRegistration,
			Address: Address{
				Street:       agg.Address.Street,
				Number:       agg.Address.Number,
				District:     agg.Address.District,
				Municipality: agg.Address.Municipality,
				State:        agg.Address.State,
				PostalCode:   agg.Address.PostalCode,
			},
			AccessKey:         inv.AccessKey,
			Protocol:          inv.Protocol,
			AuthorizationTime: inv.AuthorizationTime,
			Number:            inv.Number,
			Series:            inv.Series,
			Consumer:          inv.Consumer,
		},
		Totals: Totals{
			ItemCount:  ptr(decimal.NewFromInt(int64(agg.Totals.ItemCount))),
			Gross:      agg.Totals.Gross,
			Discounts:  ptr(agg.Totals.Discounts),
			Surcharges: ptr(agg.Totals.Surcharges),
			Payable:    ptr(agg.Totals.Payable),
			Taxes: Taxes{
				Total:          agg.TaxSummary.Total,
				Federal:        agg.TaxSummary.Federal,
				FederalPercent: agg.TaxSummary.FederalPercent,
				State:          agg.TaxSummary.State,
				StatePercent:   agg.TaxSummary.StatePercent,
				Source:         agg.TaxSummary.Source,
				LegalBasis:     agg.TaxSummary.LegalBasis,
			},
		},
		Payment: Payment{
			Method: agg.Payment.Method,
			Amount: ptr(agg.Payment.Amount),
			Change: agg.Payment.Change,
			Detail: agg.Payment.Detail,
		},
	}
	if inv.AuthorizationDate != nil {
		rec.Identification.AuthorizationDate = ptr(inv.AuthorizationDate.Format("02/01/2006"))
	}
	if a := agg.AdditionalData; a != nil {
		rec.Additional = &AdditionalData{Cashier: a.Cashier, Operator: a.Operator, Salesperson: a.Salesperson}
	}
	for _, it := range agg.Items {
		rec.Items = append(rec.Items, Item{
			Number:      ptr(decimal.NewFromInt(int64(it.Number))),
			ProductCode: it.ProductCode,
			Description: it.Description,
			Quantity:    ptr(it.Quantity),
			Unit:        it.Unit,
			UnitPrice:   ptr(it.UnitPrice),
			Discount:    it.Discount,
			Total:       ptr(it.Total),
		})
	}
	return rec
}

func money(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	r := v.Round(2)
	return &r
}

func ptr[T any](v T) *T { return &v }
