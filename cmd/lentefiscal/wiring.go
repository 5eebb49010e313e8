package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/objectstore"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/postgres"
)

// newObjectStore construye el gateway S3/MinIO y garantiza los tres buckets.
func newObjectStore(ctx context.Context) (*objectstore.Gateway, error) {
	client, err := objectstore.NewMinioClient(cfg.Storage)
	if err != nil {
		return nil, err
	}
	gw := objectstore.NewGateway(client, ports.Buckets{
		Received:  cfg.Storage.BucketReceived,
		Processed: cfg.Storage.BucketProcessed,
		Error:     cfg.Storage.BucketError,
	}, log.WithComponent("objectstore"))
	if err := gw.EnsureBuckets(ctx); err != nil {
		return nil, fmt.Errorf("preparar buckets: %w", err)
	}
	return gw, nil
}

// fiscalServices casos de uso sobre el esquema fiscal, atados al pool.
type fiscalServices struct {
	persist *fiscal.PersistUseCase
	query   *fiscal.QueryUseCase
}

func newFiscalServices(pool *pgxpool.Pool) fiscalServices {
	tx := postgres.NewTxRunner(pool)
	return fiscalServices{
		persist: fiscal.NewPersistUseCase(tx, log.WithComponent("fiscal")),
		query:   fiscal.NewQueryUseCase(postgres.NewFiscalRepos(pool), tx),
	}
}
