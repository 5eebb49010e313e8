package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo implementa repository.AnalyticsRepository sobre nfe/totais/tributos.
type AnalyticsRepo struct {
	q Querier
}

// NewAnalyticsRepository construye el repositorio (lecturas con el pool).
func NewAnalyticsRepository(q Querier) *AnalyticsRepo {
	return &AnalyticsRepo{q: q}
}

func period(from, to time.Time) sq.And {
	return sq.And{sq.GtOrEq{"n.data_registro": from}, sq.Lt{"n.data_registro": to}}
}

// Metrics cantidad de notas y sumas de totais/tributos del período.
func (r *AnalyticsRepo) Metrics(ctx context.Context, from, to time.Time) (repository.InvoiceMetrics, error) {
	query, args, err := sq.Select(
		"COUNT(*)",
		"COALESCE(SUM(t.valor_total_a_pagar), 0)",
		"COALESCE(SUM(t.descontos_gerais), 0)",
		"COALESCE(SUM(tr.total_tributos_incidentes), 0)",
	).From("nfe n").
		Join("totais t ON t.id = n.id_totais").
		LeftJoin("tributos tr ON tr.id = t.id_tributos").
		Where(period(from, to)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return repository.InvoiceMetrics{}, fmt.Errorf("build metrics: %w", err)
	}

	var m repository.InvoiceMetrics
	if err := r.q.QueryRow(ctx, query, args...).Scan(&m.InvoiceCount, &m.Payable, &m.Discounts, &m.Taxes); err != nil {
		return repository.InvoiceMetrics{}, fmt.Errorf("metrics: %w", err)
	}
	return m, nil
}

// TopEmitters agrupa por emitente y ordena por total a pagar.
func (r *AnalyticsRepo) TopEmitters(ctx context.Context, from, to time.Time, limit int) ([]repository.EmitterMetrics, error) {
	if limit <= 0 {
		limit = 5
	}
	query, args, err := sq.Select(
		"e.cnpj_emitente", "e.nome_emitente", "COUNT(*)", "COALESCE(SUM(t.valor_total_a_pagar), 0) AS payable",
	).From("nfe n").
		Join("emitente e ON e.id = n.id_emitente").
		Join("totais t ON t.id = n.id_totais").
		Where(period(from, to)).
		GroupBy("e.cnpj_emitente", "e.nome_emitente").
		OrderBy("payable DESC", "e.cnpj_emitente").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top emitters: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top emitters: %w", err)
	}
	defer rows.Close()

	out := make([]repository.EmitterMetrics, 0, limit)
	for rows.Next() {
		var m repository.EmitterMetrics
		if err := rows.Scan(&m.TaxID, &m.Name, &m.InvoiceCount, &m.Payable); err != nil {
			return nil, fmt.Errorf("scan top emitters: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
