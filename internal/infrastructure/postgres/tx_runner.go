package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

// TxBeginner Querier capaz de abrir transacciones (*pgxpool.Pool, *pgx.Conn).
type TxBeginner interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	db TxBeginner
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(db TxBeginner) *TxRunner {
	return &TxRunner{db: db}
}

// RunFiscal inicia una transacción, ejecuta fn con los repos fiscales atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunFiscal(ctx context.Context, fn func(repos repository.FiscalRepos) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewFiscalRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewFiscalRepos arma el juego de repositorios sobre un Querier (pool para lecturas, tx para escrituras).
func NewFiscalRepos(q Querier) repository.FiscalRepos {
	return repository.FiscalRepos{
		Addresses:      NewAddressRepository(q),
		Emitters:       NewEmitterRepository(q),
		TaxSummaries:   NewTaxSummaryRepository(q),
		Totals:         NewTotalsRepository(q),
		Payments:       NewPaymentRepository(q),
		AdditionalData: NewAdditionalDataRepository(q),
		Invoices:       NewInvoiceRepository(q),
		Items:          NewItemRepository(q),
	}
}
