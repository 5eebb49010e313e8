package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/lentefiscal/internal/application/pipeline"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/ai"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/postgres"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/webhook"
)

var workerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Ejecuta el ciclo de polling sobre el bucket de recibidos",
	Long: `Lista el bucket de recibidos y procesa cada archivo en secuencia: descarga,
extracción, validación, persistencia y reubicación a procesados o a error.
Corre hasta recibir SIGINT/SIGTERM; con --once ejecuta un único ciclo.`,
	Example: `  lentefiscal worker
  lentefiscal worker --once --env-file .env.local`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "ejecutar un solo ciclo y salir")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := newObjectStore(ctx)
	if err != nil {
		return err
	}
	extractor, err := ai.NewExtractor(cfg.LLM)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{}
	if cfg.Webhook.Enabled() {
		opts = append(opts, pipeline.WithNotifier(webhook.NewNotifier(cfg.Webhook)))
	}
	orch := pipeline.NewOrchestrator(store, extractor, newFiscalServices(pool).persist,
		pipeline.Config{PollInterval: cfg.Pipeline.PollInterval, ExtractTimeout: cfg.LLM.ExtractTimeout},
		log.WithComponent("pipeline"), opts...)

	log.Info().
		Str("provider", cfg.LLM.Provider).
		Str("bucket", cfg.Storage.BucketReceived).
		Bool("webhook", cfg.Webhook.Enabled()).
		Msg("worker iniciado")

	if workerOnce {
		report := orch.RunCycle(ctx)
		return report.ListErr
	}
	if err := orch.Run(ctx); err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info().Msg("señal de apagado recibida, worker detenido")
	}
	return nil
}
