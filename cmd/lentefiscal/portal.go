package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/lentefiscal/internal/application/analytics"
	"github.com/jhoicas/lentefiscal/internal/application/auth"
	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/application/inbox"
	infrapdf "github.com/jhoicas/lentefiscal/internal/infrastructure/pdf"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/postgres"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/xlsx"
	httpRouter "github.com/jhoicas/lentefiscal/internal/interfaces/http"
)

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Levanta el portal HTTP de operación manual",
	Long: `Portal del operador: subir notas al bucket de recibidos, revisar y reprocesar
los archivos con error, consultar, editar y exportar las notas persistidas.`,
	Args: cobra.NoArgs,
	RunE: runPortal,
}

func runPortal(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidatePortal(); err != nil {
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

	svc := newFiscalServices(pool)
	documents := fiscal.NewDocumentUseCase(svc.query, infrapdf.NewMarotoPDFGenerator(), xlsx.NewExporter())
	inboxUC := inbox.NewUseCase(store, int64(cfg.HTTP.MaxUploadMB)<<20, log.WithComponent("inbox"))
	authUC := auth.NewAuthUseCase(auth.Credentials{
		User:         cfg.Admin.User,
		PasswordHash: cfg.Admin.PasswordHash,
		Password:     cfg.Admin.Password,
		AllowPlain:   cfg.App.IsDevelopment(),
	}, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:        cfg.App.Name,
		BodyLimitMB: cfg.HTTP.MaxUploadMB,
		SwaggerFile: cfg.HTTP.SwaggerPath,
	}, httpRouter.RouterDeps{
		AuthUC:    authUC,
		Inbox:     inboxUC,
		Invoices:  svc.query,
		Documents: documents,
		Dashboard: analytics.NewDashboardUseCase(postgres.NewAnalyticsRepository(pool), nil),
		JWTSecret: cfg.JWT.Secret,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("portal escuchando")
		errCh <- app.Listen(cfg.HTTP.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	log.Info().Msg("portal detenido")
	return nil
}
