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

var _ repository.EmitterRepository = (*EmitterRepo)(nil)

// EmitterRepo implementación de EmitterRepository (usable con pool o tx).
type EmitterRepo struct {
	q Querier
}

// NewEmitterRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmitterRepository(q Querier) *EmitterRepo {
	return &EmitterRepo{q: q}
}

const emitterColumns = `id, cnpj_emitente, nome_emitente, ie_emitente, id_endereco, created_at, updated_at`

// GetByTaxID obtiene el emitente por CNPJ y bloquea la fila (SELECT FOR UPDATE).
func (r *EmitterRepo) GetByTaxID(ctx context.Context, taxID string) (*entity.Emitter, error) {
	query := `SELECT ` + emitterColumns + ` FROM emitente WHERE cnpj_emitente = $1 FOR UPDATE`
	return r.scanOne(ctx, "get emitente by cnpj", query, taxID)
}

// GetByID obtiene un emitente por ID.
func (r *EmitterRepo) GetByID(ctx context.Context, id string) (*entity.Emitter, error) {
	query := `SELECT ` + emitterColumns + ` FROM emitente WHERE id = $1`
	return r.scanOne(ctx, "get emitente", query, id)
}

// Upsert inserta el emitente o, si el CNPJ ya existe, actualiza nombre e IE.
// El id_endereco del existente se conserva y se devuelve en e.AddressID.
func (r *EmitterRepo) Upsert(ctx context.Context, e *entity.Emitter) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO emitente (id, cnpj_emitente, nome_emitente, ie_emitente, id_endereco, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (cnpj_emitente)
		DO UPDATE SET nome_emitente = EXCLUDED.nome_emitente,
		              ie_emitente   = COALESCE(EXCLUDED.ie_emitente, emitente.ie_emitente),
		              updated_at    = now()
		RETURNING id, id_endereco, created_at, updated_at`
	err := r.q.QueryRow(ctx, query, e.ID, e.TaxID, e.Name, e.StateRegistration, e.AddressID).Scan(
		&e.ID, &e.AddressID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert emitente: %w", err)
	}
	return nil
}

func (r *EmitterRepo) scanOne(ctx context.Context, op, query string, arg any) (*entity.Emitter, error) {
	var e entity.Emitter
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&e.ID, &e.TaxID, &e.Name, &e.StateRegistration, &e.AddressID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &e, nil
}
