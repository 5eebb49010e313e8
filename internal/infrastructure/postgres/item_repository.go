package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación de ItemRepository (tabla item).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// CreateBatch inserta las líneas de la nota en un único round-trip.
func (r *ItemRepo) CreateBatch(ctx context.Context, invoiceID string, items []entity.Item) error {
	if len(items) == 0 {
		return nil
	}
	query := `
		INSERT INTO item (id, id_nfe, numero_item, codigo_produto, descricao, quantidade,
		                  unidade, valor_unitario, desconto_item, valor_total_item)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	batch := &pgx.Batch{}
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.InvoiceID = invoiceID
		batch.Queue(query,
			it.ID, invoiceID, it.Number, it.ProductCode, it.Description, it.Quantity,
			it.Unit, it.UnitPrice, it.Discount, it.Total,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for i := range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert item %d: %w", items[i].Number, err)
		}
	}
	return br.Close()
}

// ListByInvoice devuelve las líneas ordenadas por numero_item.
func (r *ItemRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]entity.Item, error) {
	query := `
		SELECT id, id_nfe, numero_item, codigo_produto, descricao, quantidade,
		       unidade, valor_unitario, desconto_item, valor_total_item
		FROM item WHERE id_nfe = $1 ORDER BY numero_item`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var list []entity.Item
	for rows.Next() {
		var it entity.Item
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.Number, &it.ProductCode, &it.Description, &it.Quantity,
			&it.Unit, &it.UnitPrice, &it.Discount, &it.Total,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}
