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

var _ repository.AddressRepository = (*AddressRepo)(nil)

// AddressRepo implementación de AddressRepository (usable con pool o tx).
type AddressRepo struct {
	q Querier
}

// NewAddressRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAddressRepository(q Querier) *AddressRepo {
	return &AddressRepo{q: q}
}

// Create persiste un endereço nuevo.
func (r *AddressRepo) Create(ctx context.Context, a *entity.Address) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `
		INSERT INTO endereco (id, logradouro, numero, bairro, municipio, uf, cep)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, a.ID, a.Street, a.Number, a.District, a.Municipality, a.State, a.PostalCode)
	if err != nil {
		return fmt.Errorf("insert endereco: %w", err)
	}
	return nil
}

// Update reescribe el endereço en sitio (el emitente conserva su id_endereco).
func (r *AddressRepo) Update(ctx context.Context, a *entity.Address) error {
	query := `
		UPDATE endereco
		SET logradouro = $2, numero = $3, bairro = $4, municipio = $5, uf = $6, cep = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, a.ID, a.Street, a.Number, a.District, a.Municipality, a.State, a.PostalCode)
	if err != nil {
		return fmt.Errorf("update endereco: %w", err)
	}
	return nil
}

// Delete elimina un endereço sin dueño.
func (r *AddressRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM endereco WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete endereco: %w", err)
	}
	return nil
}

// GetByID obtiene un endereço por ID.
func (r *AddressRepo) GetByID(ctx context.Context, id string) (*entity.Address, error) {
	query := `
		SELECT id, logradouro, numero, bairro, municipio, uf, cep
		FROM endereco WHERE id = $1`
	var a entity.Address
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Street, &a.Number, &a.District, &a.Municipality, &a.State, &a.PostalCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get endereco: %w", err)
	}
	return &a, nil
}
