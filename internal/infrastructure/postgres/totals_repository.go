package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

var (
	_ repository.TaxSummaryRepository = (*TaxSummaryRepo)(nil)
	_ repository.TotalsRepository     = (*TotalsRepo)(nil)
)

// TaxSummaryRepo implementación de TaxSummaryRepository (tabla tributos).
type TaxSummaryRepo struct {
	q Querier
}

// NewTaxSummaryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTaxSummaryRepository(q Querier) *TaxSummaryRepo {
	return &TaxSummaryRepo{q: q}
}

// Create persiste la información de tributos.
func (r *TaxSummaryRepo) Create(ctx context.Context, t *entity.TaxSummary) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	query := `
		INSERT INTO tributos (id, total_tributos_incidentes, tributos_federais, percentual_federais,
		                      tributos_estaduais, percentual_estaduais, fonte_tributos, lei_tributos)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.Total, t.Federal, t.FederalPercent, t.State, t.StatePercent, t.Source, t.LegalBasis,
	)
	if err != nil {
		return fmt.Errorf("insert tributos: %w", err)
	}
	return nil
}

// GetByID obtiene tributos por ID.
func (r *TaxSummaryRepo) GetByID(ctx context.Context, id string) (*entity.TaxSummary, error) {
	query := `
		SELECT id, total_tributos_incidentes, tributos_federais, percentual_federais,
		       tributos_estaduais, percentual_estaduais, fonte_tributos, lei_tributos
		FROM tributos WHERE id = $1`
	var t entity.TaxSummary
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Total, &t.Federal, &t.FederalPercent, &t.State, &t.StatePercent, &t.Source, &t.LegalBasis,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tributos: %w", err)
	}
	return &t, nil
}

// TotalsRepo implementación de TotalsRepository (tabla totais).
type TotalsRepo struct {
	q Querier
}

// NewTotalsRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTotalsRepository(q Querier) *TotalsRepo {
	return &TotalsRepo{q: q}
}

// Create persiste los totales; TaxSummaryID debe existir.
func (r *TotalsRepo) Create(ctx context.Context, t *entity.Totals) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	query := `
		INSERT INTO totais (id, qtd_total_itens, valor_total_produtos, descontos_gerais,
		                    acrescimos_gerais, valor_total_a_pagar, id_tributos)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.ItemCount, t.Gross, t.Discounts, t.Surcharges, t.Payable, t.TaxSummaryID,
	)
	if err != nil {
		return fmt.Errorf("insert totais: %w", err)
	}
	return nil
}

// GetByID obtiene totales por ID.
func (r *TotalsRepo) GetByID(ctx context.Context, id string) (*entity.Totals, error) {
	query := `
		SELECT id, qtd_total_itens, valor_total_produtos, descontos_gerais,
		       acrescimos_gerais, valor_total_a_pagar, id_tributos
		FROM totais WHERE id = $1`
	var t entity.Totals
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.ItemCount, &t.Gross, &t.Discounts, &t.Surcharges, &t.Payable, &t.TaxSummaryID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get totais: %w", err)
	}
	return &t, nil
}
