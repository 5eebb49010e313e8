package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/lentefiscal/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica las migraciones SQL pendientes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := postgres.Migrate(ctx, pool, log.WithComponent("migrate"))
		if err != nil {
			return err
		}
		log.Info().Int("applied", len(applied)).Strs("versions", applied).Msg("esquema al día")
		return nil
	},
}
