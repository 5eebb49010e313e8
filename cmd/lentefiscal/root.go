package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jhoicas/lentefiscal/pkg/config"
	"github.com/jhoicas/lentefiscal/pkg/logger"
)

var version = "dev"

// Estado compartido por los subcomandos, cargado en PersistentPreRunE.
var (
	envFile string
	cfg     *config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lentefiscal",
	Short: "Pipeline de NF-e/NFC-e: bucket → extracción → validación → PostgreSQL",
	Long: `lentefiscal lee notas fiscales (imagen, PDF o XML) del bucket de recibidos,
extrae sus datos con un modelo con visión o con el parser XML, los valida y los
persiste en PostgreSQL, moviendo cada archivo a procesados o a error.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("cargar %s: %w", envFile, err)
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("cargar configuración: %w", err)
		}
		log = logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
		log.Debug().Str("command", cmd.Name()).Str("env", cfg.App.Env).Msg("configuración cargada")
		return nil
	},
}

// Execute corre el comando raíz y termina con código 1 ante error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error().Err(err).Msg("el comando terminó con error")
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "archivo .env adicional a cargar antes de leer el entorno")
	rootCmd.AddCommand(workerCmd, portalCmd, migrateCmd, reprocessCmd, hashPasswordCmd)
}
