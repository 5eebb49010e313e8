package fiscal_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
)

const (
	sampleKey = "35251012345678000195650010000001231123456785"
	otherKey  = "35251012345678000195650010000001241876543216"
)

func newPersist() (*fiscal.PersistUseCase, *memStore, *fakeTx) {
	store := newMemStore()
	tx := &fakeTx{store: store}
	return fiscal.NewPersistUseCase(tx, zerolog.Nop()), store, tx
}

// ─── Persist ──────────────────────────────────────────────────────────────────

func TestPersist_CreatesWholeAggregate(t *testing.T) {
	uc, store, _ := newPersist()

	res, err := uc.Persist(context.Background(), loadSample(t), fiscal.WithSourceObject("nfe-recebidos/nota1.png"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.Contains(t, store.invoices, res.InvoiceID)

	inv := store.invoices[res.InvoiceID]
	require.NotNil(t, inv.AccessKey)
	assert.Equal(t, sampleKey, *inv.AccessKey)
	require.NotNil(t, inv.SourceObject)
	assert.Equal(t, "nfe-recebidos/nota1.png", *inv.SourceObject)
	require.NotNil(t, inv.AdditionalDataID)

	assert.Len(t, store.emitters, 1)
	assert.Len(t, store.addresses, 1)
	assert.Len(t, store.taxes, 1)
	assert.Len(t, store.totals, 1)
	assert.Len(t, store.payments, 1)

	em := store.emitters[inv.EmitterID]
	assert.Equal(t, "12345678000195", em.TaxID)
	assert.Equal(t, "SAO PAULO", store.addresses[em.AddressID].Municipality)

	items := store.items[res.InvoiceID]
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Number)
	assert.Equal(t, 2, items[1].Number)
	assert.Equal(t, "16", items[1].Total.String())
}

func TestPersist_SameAccessKeyTwiceKeepsOneInvoice(t *testing.T) {
	uc, store, _ := newPersist()
	ctx := context.Background()

	first, err := uc.Persist(ctx, loadSample(t))
	require.NoError(t, err)
	second, err := uc.Persist(ctx, loadSample(t))
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.InvoiceID, second.InvoiceID)
	assert.Len(t, store.invoices, 1)
	assert.Len(t, store.payments, 1, "la segunda pasada no debe escribir nada")
}

func TestPersist_SameTaxIDUpsertsEmitter(t *testing.T) {
	uc, store, _ := newPersist()
	ctx := context.Background()

	_, err := uc.Persist(ctx, loadSample(t))
	require.NoError(t, err)

	rec := loadSample(t)
	key := otherKey
	rec.Identification.AccessKey = &key
	rec.Identification.EmitterName = "MERCADO DE TESTE NOVO NOME LTDA"
	rec.Identification.Address.Municipality = "CAMPINAS"
	res, err := uc.Persist(ctx, rec)
	require.NoError(t, err)
	require.True(t, res.Created)

	require.Len(t, store.emitters, 1)
	require.Len(t, store.addresses, 1, "el endereço del emitente se actualiza en sitio")
	for _, em := range store.emitters {
		assert.Equal(t, "MERCADO DE TESTE NOVO NOME LTDA", em.Name)
		assert.Equal(t, "CAMPINAS", store.addresses[em.AddressID].Municipality)
	}
	assert.Len(t, store.invoices, 2)
}

func TestPersist_InvalidRecordWritesNothing(t *testing.T) {
	uc, store, tx := newPersist()
	rec := loadSample(t)
	rec.Totals.Payable = nil

	_, err := uc.Persist(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.Zero(t, tx.calls)
	assert.Empty(t, store.invoices)
}

func TestPersist_FailureRollsBackEverything(t *testing.T) {
	uc, store, _ := newPersist()
	store.failOn["items.create"] = errors.New("insert item 2: check constraint")

	_, err := uc.Persist(context.Background(), loadSample(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Contains(t, err.Error(), "check constraint")

	assert.Empty(t, store.invoices)
	assert.Empty(t, store.emitters)
	assert.Empty(t, store.addresses)
	assert.Empty(t, store.totals)
	assert.Empty(t, store.payments)
}

func TestPersist_ConcurrentInsertReturnsExistingID(t *testing.T) {
	uc, store, tx := newPersist()
	key := sampleKey
	store.onCreateInvoice = func() error {
		// otra instancia confirma la misma chave mientras esta transacción sigue abierta
		store.invoices["ganadora"] = entity.Invoice{ID: "ganadora", AccessKey: &key}
		store.onCreateInvoice = nil
		return fmt.Errorf("insert nfe: %w", domain.ErrDuplicate)
	}

	res, err := uc.Persist(context.Background(), loadSample(t))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "ganadora", res.InvoiceID)
	assert.Equal(t, 2, tx.calls)
	assert.Len(t, store.invoices, 1)
	assert.Empty(t, store.payments, "la transacción perdedora se revierte")
}

func TestPersist_WithoutAccessKeyAlwaysInserts(t *testing.T) {
	uc, store, _ := newPersist()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rec := loadSample(t)
		rec.Identification.AccessKey = nil
		res, err := uc.Persist(ctx, rec)
		require.NoError(t, err)
		assert.True(t, res.Created)
	}
	assert.Len(t, store.invoices, 2)
	assert.Len(t, store.emitters, 1)
}
