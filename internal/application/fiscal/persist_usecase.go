// Package fiscal contiene los casos de uso sobre el esquema fiscal normalizado:
// persistencia transaccional de una nota extraída y su consulta/mantenimiento.
package fiscal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

// PersistResult resultado de Persist. Created=false indica que la chave ya existía.
type PersistResult struct {
	InvoiceID string
	Created   bool
}

// PersistOption ajusta una llamada a Persist.
type PersistOption func(*entity.Invoice)

// WithSourceObject registra en la nota el objeto del bucket del que se extrajo.
func WithSourceObject(ref string) PersistOption {
	return func(inv *entity.Invoice) {
		if ref != "" {
			inv.SourceObject = &ref
		}
	}
}

// PersistUseCase mapea un registro validado al esquema normalizado en una sola transacción.
type PersistUseCase struct {
	tx  TxRunner
	log zerolog.Logger
}

// NewPersistUseCase construye el caso de uso.
func NewPersistUseCase(tx TxRunner, log zerolog.Logger) *PersistUseCase {
	return &PersistUseCase{tx: tx, log: log}
}

// Persist valida el registro y lo guarda: emitente (upsert por CNPJ) con su endereço, tributos,
// totais, pagamento, dados adicionais, nfe e itens. Si la chave de acesso ya existe devuelve
// el ID existente sin escribir nada. Cualquier fallo revierte todo y envuelve domain.ErrPersistence.
func (uc *PersistUseCase) Persist(ctx context.Context, rec *nfe.Record, opts ...PersistOption) (PersistResult, error) {
	agg, err := rec.Aggregate()
	if err != nil {
		return PersistResult{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	for _, opt := range opts {
		opt(&agg.Invoice)
	}

	var result PersistResult
	err = uc.tx.RunFiscal(ctx, func(r repository.FiscalRepos) error {
		if key := agg.Invoice.AccessKey; key != nil {
			id, err := r.Invoices.FindIDByAccessKey(ctx, *key)
			if err != nil {
				return err
			}
			if id != "" {
				result = PersistResult{InvoiceID: id}
				return nil
			}
		}
		if err := insertAggregate(ctx, r, agg); err != nil {
			return err
		}
		result = PersistResult{InvoiceID: agg.Invoice.ID, Created: true}
		return nil
	})

	// Otra transacción insertó la misma chave entre el SELECT y el INSERT.
	if errors.Is(err, domain.ErrDuplicate) && agg.Invoice.AccessKey != nil {
		id, lookupErr := uc.findByAccessKey(ctx, *agg.Invoice.AccessKey)
		if lookupErr == nil && id != "" {
			uc.log.Info().Str("chave", *agg.Invoice.AccessKey).Str("invoice_id", id).
				Msg("nota insertada en paralelo, se reutiliza la existente")
			return PersistResult{InvoiceID: id}, nil
		}
	}
	if err != nil {
		return PersistResult{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	if result.Created {
		uc.log.Info().Str("invoice_id", result.InvoiceID).Str("cnpj", agg.Emitter.TaxID).
			Int("items", len(agg.Items)).Msg("nota persistida")
	} else {
		uc.log.Info().Str("invoice_id", result.InvoiceID).Msg("nota ya registrada, sin cambios")
	}
	return result, nil
}

func (uc *PersistUseCase) findByAccessKey(ctx context.Context, key string) (string, error) {
	var id string
	err := uc.tx.RunFiscal(ctx, func(r repository.FiscalRepos) error {
		var err error
		id, err = r.Invoices.FindIDByAccessKey(ctx, key)
		return err
	})
	return id, err
}

func insertAggregate(ctx context.Context, r repository.FiscalRepos, agg *entity.InvoiceAggregate) error {
	if err := upsertEmitter(ctx, r, &agg.Emitter, &agg.Address); err != nil {
		return err
	}

	if err := r.TaxSummaries.Create(ctx, &agg.TaxSummary); err != nil {
		return err
	}
	agg.Totals.TaxSummaryID = agg.TaxSummary.ID
	if err := r.Totals.Create(ctx, &agg.Totals); err != nil {
		return err
	}
	if err := r.Payments.Create(ctx, &agg.Payment); err != nil {
		return err
	}
	if agg.AdditionalData != nil {
		if err := r.AdditionalData.Create(ctx, agg.AdditionalData); err != nil {
			return err
		}
		agg.Invoice.AdditionalDataID = &agg.AdditionalData.ID
	}

	agg.Invoice.EmitterID = agg.Emitter.ID
	agg.Invoice.TotalsID = agg.Totals.ID
	agg.Invoice.PaymentID = agg.Payment.ID
	if err := r.Invoices.Create(ctx, &agg.Invoice); err != nil {
		return err
	}
	return r.Items.CreateBatch(ctx, agg.Invoice.ID, agg.Items)
}

// upsertEmitter resuelve el emitente por CNPJ. Uno conocido conserva su endereço,
// que se actualiza en sitio; uno nuevo recibe un endereço propio.
func upsertEmitter(ctx context.Context, r repository.FiscalRepos, em *entity.Emitter, addr *entity.Address) error {
	existing, err := r.Emitters.GetByTaxID(ctx, em.TaxID)
	if err != nil {
		return err
	}
	if existing != nil {
		em.ID = existing.ID
		em.AddressID = existing.AddressID
		addr.ID = existing.AddressID
		if err := r.Addresses.Update(ctx, addr); err != nil {
			return err
		}
		return r.Emitters.Upsert(ctx, em)
	}

	if err := r.Addresses.Create(ctx, addr); err != nil {
		return err
	}
	fresh := addr.ID
	em.AddressID = fresh
	if err := r.Emitters.Upsert(ctx, em); err != nil {
		return err
	}
	if em.AddressID == fresh {
		return nil
	}
	// El CNPJ se insertó en paralelo: el endereço recién creado queda sin dueño.
	if err := r.Addresses.Delete(ctx, fresh); err != nil {
		return err
	}
	addr.ID = em.AddressID
	return r.Addresses.Update(ctx, addr)
}
