package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const (
	defaultListLimit    = 50
	maxListLimit        = 500
	accessKeyConstraint = "nfe_chave_acesso_key"
)

// InvoiceRepo implementación de InvoiceRepository (tabla nfe, usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera. Una chave_acesso repetida devuelve domain.ErrDuplicate.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	authTime, err := timeOfDay(inv.AuthorizationTime)
	if err != nil {
		return fmt.Errorf("insert nfe: hora_autorizacao: %w", err)
	}
	query := `
		INSERT INTO nfe (id, id_emitente, chave_acesso, protocolo_autorizacao, data_autorizacao,
		                 hora_autorizacao, numero_nfce, serie_nfce, consumidor,
		                 id_totais, id_pagamento, id_dados_adicionais, objeto_origem)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING data_registro`
	err = r.q.QueryRow(ctx, query,
		inv.ID, inv.EmitterID, inv.AccessKey, inv.Protocol, dateOnly(inv.AuthorizationDate),
		authTime, inv.Number, inv.Series, inv.Consumer,
		inv.TotalsID, inv.PaymentID, inv.AdditionalDataID, inv.SourceObject,
	).Scan(&inv.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == accessKeyConstraint {
			return fmt.Errorf("chave de acesso already exists: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert nfe: %w", err)
	}
	return nil
}

const invoiceColumns = `
	id, id_emitente, chave_acesso, protocolo_autorizacao, data_autorizacao, hora_autorizacao,
	numero_nfce, serie_nfce, consumidor, id_totais, id_pagamento, id_dados_adicionais,
	objeto_origem, data_registro`

// GetByID obtiene la cabecera de una nota por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM nfe WHERE id = $1`
	var inv entity.Invoice
	var date pgtype.Date
	var clock pgtype.Time
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.EmitterID, &inv.AccessKey, &inv.Protocol, &date, &clock,
		&inv.Number, &inv.Series, &inv.Consumer, &inv.TotalsID, &inv.PaymentID, &inv.AdditionalDataID,
		&inv.SourceObject, &inv.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get nfe: %w", err)
	}
	inv.AuthorizationDate = datePtr(date)
	inv.AuthorizationTime = clockString(clock)
	return &inv, nil
}

// FindIDByAccessKey busca la nota por chave de acesso y toma un lock compartido sobre la fila.
func (r *InvoiceRepo) FindIDByAccessKey(ctx context.Context, accessKey string) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `SELECT id FROM nfe WHERE chave_acesso = $1 FOR SHARE`, accessKey).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find nfe by chave: %w", err)
	}
	return id, nil
}

// UpdateHeader actualiza los campos de cabecera editables desde el portal.
func (r *InvoiceRepo) UpdateHeader(ctx context.Context, inv *entity.Invoice) error {
	authTime, err := timeOfDay(inv.AuthorizationTime)
	if err != nil {
		return fmt.Errorf("update nfe: hora_autorizacao: %w", err)
	}
	query := `
		UPDATE nfe
		SET chave_acesso          = $2,
		    protocolo_autorizacao = $3,
		    data_autorizacao      = $4,
		    hora_autorizacao      = $5,
		    numero_nfce           = $6,
		    serie_nfce            = $7,
		    consumidor            = $8,
		    id_dados_adicionais   = $9
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		inv.ID, inv.AccessKey, inv.Protocol, dateOnly(inv.AuthorizationDate), authTime,
		inv.Number, inv.Series, inv.Consumer, inv.AdditionalDataID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("chave de acesso already exists: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("update nfe: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la nota; los ítems caen por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM nfe WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete nfe: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List devuelve resúmenes paginados (más recientes primero) y el total que cumple el filtro.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]entity.InvoiceSummary, int, error) {
	where := sq.And{}
	if f.EmitterTaxID != "" {
		where = append(where, sq.Eq{"e.cnpj_emitente": f.EmitterTaxID})
	}
	if f.EmitterName != "" {
		where = append(where, sq.ILike{"e.nome_emitente": "%" + f.EmitterName + "%"})
	}
	if f.AccessKey != "" {
		where = append(where, sq.Eq{"n.chave_acesso": f.AccessKey})
	}
	if f.From != nil {
		where = append(where, sq.GtOrEq{"n.data_registro": *f.From})
	}
	if f.To != nil {
		where = append(where, sq.Lt{"n.data_registro": *f.To})
	}

	base := func(b sq.SelectBuilder) sq.SelectBuilder {
		b = b.From("nfe n").
			Join("emitente e ON e.id = n.id_emitente").
			Join("totais t ON t.id = n.id_totais").
			PlaceholderFormat(sq.Dollar)
		if len(where) > 0 {
			b = b.Where(where)
		}
		return b
	}

	countSQL, countArgs, err := base(sq.Select("COUNT(*)")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count nfe: %w", err)
	}
	var total int
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count nfe: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(f.Offset, 0)

	listSQL, args, err := base(sq.Select(
		"n.id", "n.numero_nfce", "n.serie_nfce", "n.chave_acesso", "n.data_autorizacao",
		"e.nome_emitente", "e.cnpj_emitente", "t.valor_total_a_pagar", "t.qtd_total_itens", "n.data_registro",
	)).OrderBy("n.data_registro DESC", "n.id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list nfe: %w", err)
	}
	rows, err := r.q.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list nfe: %w", err)
	}
	defer rows.Close()

	list := make([]entity.InvoiceSummary, 0, limit)
	for rows.Next() {
		var s entity.InvoiceSummary
		var date pgtype.Date
		if err := rows.Scan(
			&s.ID, &s.Number, &s.Series, &s.AccessKey, &date,
			&s.EmitterName, &s.EmitterTaxID, &s.Payable, &s.ItemCount, &s.RegisteredAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan nfe: %w", err)
		}
		s.AuthorizationDate = datePtr(date)
		list = append(list, s)
	}
	return list, total, rows.Err()
}
