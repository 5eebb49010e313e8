package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

var (
	_ repository.PaymentRepository        = (*PaymentRepo)(nil)
	_ repository.AdditionalDataRepository = (*AdditionalDataRepo)(nil)
)

// PaymentRepo implementación de PaymentRepository (tabla pagamento).
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

// Create persiste el pagamento.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO pagamento (id, forma_pagamento, valor_pago, troco, meio_pagamento_detalhe)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.q.Exec(ctx, query, p.ID, p.Method, p.Amount, p.Change, p.Detail); err != nil {
		return fmt.Errorf("insert pagamento: %w", err)
	}
	return nil
}

// Update reescribe el pagamento.
func (r *PaymentRepo) Update(ctx context.Context, p *entity.Payment) error {
	query := `
		UPDATE pagamento
		SET forma_pagamento = $2, valor_pago = $3, troco = $4, meio_pagamento_detalhe = $5
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, p.ID, p.Method, p.Amount, p.Change, p.Detail)
	if err != nil {
		return fmt.Errorf("update pagamento: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene el pagamento por ID.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	query := `
		SELECT id, forma_pagamento, valor_pago, troco, meio_pagamento_detalhe
		FROM pagamento WHERE id = $1`
	var p entity.Payment
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Method, &p.Amount, &p.Change, &p.Detail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pagamento: %w", err)
	}
	return &p, nil
}

// AdditionalDataRepo implementación de AdditionalDataRepository (tabla dados_adicionais).
type AdditionalDataRepo struct {
	q Querier
}

// NewAdditionalDataRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdditionalDataRepository(q Querier) *AdditionalDataRepo {
	return &AdditionalDataRepo{q: q}
}

// Create persiste los dados adicionais.
func (r *AdditionalDataRepo) Create(ctx context.Context, d *entity.AdditionalData) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `INSERT INTO dados_adicionais (id, caixa, operador, vendedor) VALUES ($1, $2, $3, $4)`
	if _, err := r.q.Exec(ctx, query, d.ID, d.Cashier, d.Operator, d.Salesperson); err != nil {
		return fmt.Errorf("insert dados_adicionais: %w", err)
	}
	return nil
}

// Update reescribe los dados adicionais.
func (r *AdditionalDataRepo) Update(ctx context.Context, d *entity.AdditionalData) error {
	query := `UPDATE dados_adicionais SET caixa = $2, operador = $3, vendedor = $4 WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, d.ID, d.Cashier, d.Operator, d.Salesperson)
	if err != nil {
		return fmt.Errorf("update dados_adicionais: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene los dados adicionais por ID.
func (r *AdditionalDataRepo) GetByID(ctx context.Context, id string) (*entity.AdditionalData, error) {
	query := `SELECT id, caixa, operador, vendedor FROM dados_adicionais WHERE id = $1`
	var d entity.AdditionalData
	err := r.q.QueryRow(ctx, query, id).Scan(&d.ID, &d.Cashier, &d.Operator, &d.Salesperson)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dados_adicionais: %w", err)
	}
	return &d, nil
}
