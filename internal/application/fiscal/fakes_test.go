package fiscal_test

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

// loadSample devuelve el cupón de ejemplo ya normalizado (chave ...6785, CNPJ 12345678000195).
func loadSample(t *testing.T) *nfe.Record {
	t.Helper()
	data, err := os.ReadFile("../../domain/nfe/testdata/nfce_mercado.json")
	require.NoError(t, err)
	rec, err := nfe.Decode(data)
	require.NoError(t, err)
	rec.Normalize()
	return rec
}

// ─── memStore: esquema fiscal en memoria ─────────────────────────────────────

type memStore struct {
	addresses  map[string]entity.Address
	emitters   map[string]entity.Emitter
	taxes      map[string]entity.TaxSummary
	totals     map[string]entity.Totals
	payments   map[string]entity.Payment
	additional map[string]entity.AdditionalData
	invoices   map[string]entity.Invoice
	items      map[string][]entity.Item

	// failOn fuerza un error en la operación indicada ("items.create", "invoices.create", ...).
	failOn map[string]error
	// onCreateInvoice se ejecuta antes de insertar la nota; un error aborta el insert.
	onCreateInvoice func() error
}

func newMemStore() *memStore {
	return &memStore{
		addresses:  map[string]entity.Address{},
		emitters:   map[string]entity.Emitter{},
		taxes:      map[string]entity.TaxSummary{},
		totals:     map[string]entity.Totals{},
		payments:   map[string]entity.Payment{},
		additional: map[string]entity.AdditionalData{},
		invoices:   map[string]entity.Invoice{},
		items:      map[string][]entity.Item{},
		failOn:     map[string]error{},
	}
}

func (s *memStore) clone() *memStore {
	c := *s
	c.addresses = maps.Clone(s.addresses)
	c.emitters = maps.Clone(s.emitters)
	c.taxes = maps.Clone(s.taxes)
	c.totals = maps.Clone(s.totals)
	c.payments = maps.Clone(s.payments)
	c.additional = maps.Clone(s.additional)
	c.invoices = maps.Clone(s.invoices)
	c.items = make(map[string][]entity.Item, len(s.items))
	for k, v := range s.items {
		c.items[k] = slices.Clone(v)
	}
	return &c
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

func (s *memStore) repos() repository.FiscalRepos {
	return repository.FiscalRepos{
		Addresses:      addressRepo{s},
		Emitters:       emitterRepo{s},
		TaxSummaries:   taxRepo{s},
		Totals:         totalsRepo{s},
		Payments:       paymentRepo{s},
		AdditionalData: additionalRepo{s},
		Invoices:       invoiceRepo{s},
		Items:          itemRepo{s},
	}
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

// fakeTx ejecuta fn sobre una copia y la confirma solo si fn no devuelve error.
type fakeTx struct {
	store *memStore
	calls int
}

func (f *fakeTx) RunFiscal(_ context.Context, fn func(repository.FiscalRepos) error) error {
	f.calls++
	work := f.store.clone()
	if err := fn(work.repos()); err != nil {
		return err
	}
	*f.store = *work
	return nil
}

type addressRepo struct{ s *memStore }

func (r addressRepo) Create(_ context.Context, a *entity.Address) error {
	newID(&a.ID)
	r.s.addresses[a.ID] = *a
	return r.s.fail("addresses.create")
}

func (r addressRepo) Update(_ context.Context, a *entity.Address) error {
	r.s.addresses[a.ID] = *a
	return nil
}

func (r addressRepo) Delete(_ context.Context, id string) error {
	delete(r.s.addresses, id)
	return nil
}

func (r addressRepo) GetByID(_ context.Context, id string) (*entity.Address, error) {
	if a, ok := r.s.addresses[id]; ok {
		return &a, nil
	}
	return nil, nil
}

type emitterRepo struct{ s *memStore }

func (r emitterRepo) GetByTaxID(_ context.Context, taxID string) (*entity.Emitter, error) {
	for _, e := range r.s.emitters {
		if e.TaxID == taxID {
			return &e, nil
		}
	}
	return nil, nil
}

func (r emitterRepo) GetByID(_ context.Context, id string) (*entity.Emitter, error) {
	if e, ok := r.s.emitters[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (r emitterRepo) Upsert(ctx context.Context, e *entity.Emitter) error {
	now := time.Now()
	if existing, _ := r.GetByTaxID(ctx, e.TaxID); existing != nil {
		existing.Name = e.Name
		if e.StateRegistration != nil {
			existing.StateRegistration = e.StateRegistration
		}
		existing.UpdatedAt = now
		r.s.emitters[existing.ID] = *existing
		*e = *existing
		return nil
	}
	newID(&e.ID)
	e.CreatedAt, e.UpdatedAt = now, now
	r.s.emitters[e.ID] = *e
	return nil
}

type taxRepo struct{ s *memStore }

func (r taxRepo) Create(_ context.Context, t *entity.TaxSummary) error {
	newID(&t.ID)
	r.s.taxes[t.ID] = *t
	return nil
}

func (r taxRepo) GetByID(_ context.Context, id string) (*entity.TaxSummary, error) {
	if t, ok := r.s.taxes[id]; ok {
		return &t, nil
	}
	return nil, nil
}

type totalsRepo struct{ s *memStore }

func (r totalsRepo) Create(_ context.Context, t *entity.Totals) error {
	newID(&t.ID)
	if _, ok := r.s.taxes[t.TaxSummaryID]; !ok {
		return fmt.Errorf("insert totais: id_tributos %q inexistente", t.TaxSummaryID)
	}
	r.s.totals[t.ID] = *t
	return nil
}

func (r totalsRepo) GetByID(_ context.Context, id string) (*entity.Totals, error) {
	if t, ok := r.s.totals[id]; ok {
		return &t, nil
	}
	return nil, nil
}

type paymentRepo struct{ s *memStore }

func (r paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	newID(&p.ID)
	r.s.payments[p.ID] = *p
	return nil
}

func (r paymentRepo) Update(_ context.Context, p *entity.Payment) error {
	if _, ok := r.s.payments[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.payments[p.ID] = *p
	return nil
}

func (r paymentRepo) GetByID(_ context.Context, id string) (*entity.Payment, error) {
	if p, ok := r.s.payments[id]; ok {
		return &p, nil
	}
	return nil, nil
}

type additionalRepo struct{ s *memStore }

func (r additionalRepo) Create(_ context.Context, d *entity.AdditionalData) error {
	newID(&d.ID)
	r.s.additional[d.ID] = *d
	return nil
}

func (r additionalRepo) Update(_ context.Context, d *entity.AdditionalData) error {
	if _, ok := r.s.additional[d.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.additional[d.ID] = *d
	return nil
}

func (r additionalRepo) GetByID(_ context.Context, id string) (*entity.AdditionalData, error) {
	if d, ok := r.s.additional[id]; ok {
		return &d, nil
	}
	return nil, nil
}

type invoiceRepo struct{ s *memStore }

func (r invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if r.s.onCreateInvoice != nil {
		if err := r.s.onCreateInvoice(); err != nil {
			return err
		}
	}
	if err := r.s.fail("invoices.create"); err != nil {
		return err
	}
	if inv.AccessKey != nil {
		for _, other := range r.s.invoices {
			if other.AccessKey != nil && *other.AccessKey == *inv.AccessKey {
				return fmt.Errorf("chave de acesso already exists: %w", domain.ErrDuplicate)
			}
		}
	}
	newID(&inv.ID)
	inv.RegisteredAt = time.Now()
	r.s.invoices[inv.ID] = *inv
	return nil
}

func (r invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	if inv, ok := r.s.invoices[id]; ok {
		return &inv, nil
	}
	return nil, nil
}

func (r invoiceRepo) FindIDByAccessKey(_ context.Context, key string) (string, error) {
	for _, inv := range r.s.invoices {
		if inv.AccessKey != nil && *inv.AccessKey == key {
			return inv.ID, nil
		}
	}
	return "", nil
}

func (r invoiceRepo) UpdateHeader(_ context.Context, inv *entity.Invoice) error {
	if _, ok := r.s.invoices[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.invoices[inv.ID] = *inv
	return nil
}

func (r invoiceRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.invoices[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.invoices, id)
	delete(r.s.items, id)
	return nil
}

func (r invoiceRepo) List(_ context.Context, f repository.InvoiceFilter) ([]entity.InvoiceSummary, int, error) {
	var all []entity.InvoiceSummary
	for _, inv := range r.s.invoices {
		em := r.s.emitters[inv.EmitterID]
		if f.EmitterTaxID != "" && em.TaxID != f.EmitterTaxID {
			continue
		}
		if f.EmitterName != "" && !strings.Contains(strings.ToUpper(em.Name), strings.ToUpper(f.EmitterName)) {
			continue
		}
		tot := r.s.totals[inv.TotalsID]
		all = append(all, entity.InvoiceSummary{
			ID: inv.ID, Number: inv.Number, Series: inv.Series, AccessKey: inv.AccessKey,
			AuthorizationDate: inv.AuthorizationDate, EmitterName: em.Name, EmitterTaxID: em.TaxID,
			Payable: tot.Payable, ItemCount: tot.ItemCount, RegisteredAt: inv.RegisteredAt,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	start := min(f.Offset, total)
	end := min(start+limit, total)
	return all[start:end], total, nil
}

type itemRepo struct{ s *memStore }

func (r itemRepo) CreateBatch(_ context.Context, invoiceID string, items []entity.Item) error {
	if err := r.s.fail("items.create"); err != nil {
		return err
	}
	for i := range items {
		newID(&items[i].ID)
		items[i].InvoiceID = invoiceID
	}
	r.s.items[invoiceID] = append(r.s.items[invoiceID], items...)
	return nil
}

func (r itemRepo) ListByInvoice(_ context.Context, invoiceID string) ([]entity.Item, error) {
	return slices.Clone(r.s.items[invoiceID]), nil
}
