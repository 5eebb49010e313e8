package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/postgres"
)

// startDatabase levanta un PostgreSQL efímero con el esquema migrado.
func startDatabase(t *testing.T) (*pgxpool.Pool, *fiscal.PersistUseCase, *fiscal.QueryUseCase) {
	t.Helper()
	if testing.Short() {
		t.Skip("test de integración: omitido con -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("lentefiscal_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminar contenedor: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := postgres.NewPoolFromDSN(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := postgres.Migrate(ctx, pool, zerolog.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	again, err := postgres.Migrate(ctx, pool, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, again, "las migraciones ya aplicadas no se repiten")

	tx := postgres.NewTxRunner(pool)
	return pool, fiscal.NewPersistUseCase(tx, zerolog.Nop()), fiscal.NewQueryUseCase(postgres.NewFiscalRepos(pool), tx)
}

func sampleRecord(t *testing.T) *nfe.Record {
	t.Helper()
	data, err := os.ReadFile("../../domain/nfe/testdata/nfce_mercado.json")
	require.NoError(t, err)
	rec, err := nfe.Decode(data)
	require.NoError(t, err)
	rec.Normalize()
	return rec
}

func TestFiscalSchema_Integration(t *testing.T) {
	pool, persist, query := startDatabase(t)
	ctx := context.Background()

	first, err := persist.Persist(ctx, sampleRecord(t), fiscal.WithSourceObject("nfe-recebidos/nota1.png"))
	require.NoError(t, err)
	require.True(t, first.Created)

	t.Run("misma chave no duplica", func(t *testing.T) {
		again, err := persist.Persist(ctx, sampleRecord(t))
		require.NoError(t, err)
		assert.False(t, again.Created)
		assert.Equal(t, first.InvoiceID, again.InvoiceID)
	})

	t.Run("el emitente conserva el último nombre", func(t *testing.T) {
		rec := sampleRecord(t)
		rec.Identification.AccessKey = nil
		rec.Identification.EmitterName = "MERCADO DE TESTE EIRELI"
		second, err := persist.Persist(ctx, rec)
		require.NoError(t, err)
		require.True(t, second.Created)

		agg, err := query.Get(ctx, first.InvoiceID)
		require.NoError(t, err)
		assert.Equal(t, "MERCADO DE TESTE EIRELI", agg.Emitter.Name)

		page, err := query.List(ctx, repository.InvoiceFilter{EmitterTaxID: "12345678000195", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("agregado completo", func(t *testing.T) {
		agg, err := query.Get(ctx, first.InvoiceID)
		require.NoError(t, err)
		require.Len(t, agg.Items, 2)
		assert.Equal(t, "KG", agg.Items[1].Unit)
		assert.Equal(t, "35.50", agg.Totals.Payable.StringFixed(2))
		assert.Equal(t, "SAO PAULO", agg.Address.Municipality)
		require.NotNil(t, agg.Invoice.SourceObject)
		assert.Equal(t, "nfe-recebidos/nota1.png", *agg.Invoice.SourceObject)
		assert.NoError(t, nfe.FromAggregate(agg).Validate())
	})

	t.Run("métricas del período", func(t *testing.T) {
		repo := postgres.NewAnalyticsRepository(pool)
		from := time.Now().Add(-time.Hour)
		to := time.Now().Add(time.Hour)

		m, err := repo.Metrics(ctx, from, to)
		require.NoError(t, err)
		assert.Equal(t, 2, m.InvoiceCount)
		assert.Equal(t, "71.00", m.Payable.StringFixed(2))
		assert.Equal(t, "9.00", m.Taxes.StringFixed(2))

		top, err := repo.TopEmitters(ctx, from, to, 5)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, 2, top[0].InvoiceCount)

		empty, err := repo.Metrics(ctx, to, to.Add(time.Hour))
		require.NoError(t, err)
		assert.Zero(t, empty.InvoiceCount)
		assert.True(t, empty.Payable.IsZero())
	})

	t.Run("delete en cascada", func(t *testing.T) {
		require.NoError(t, query.Delete(ctx, first.InvoiceID))
		_, err := query.Get(ctx, first.InvoiceID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, query.Delete(ctx, first.InvoiceID), domain.ErrNotFound)
	})
}
