package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/lentefiscal/internal/application/inbox"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess [keys...]",
	Short: "Devuelve archivos del bucket de error a recibidos",
	Long: `Mueve los archivos indicados (o todos, sin argumentos) del bucket de error al
de recibidos y borra su log de error, para que el próximo ciclo los vuelva a tomar.`,
	Example: `  lentefiscal reprocess nota2.pdf
  lentefiscal reprocess`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newObjectStore(cmd.Context())
		if err != nil {
			return err
		}
		uc := inbox.NewUseCase(store, 0, log.WithComponent("inbox"))
		results, err := uc.Reprocess(cmd.Context(), args...)
		for _, r := range results {
			status := "ok"
			if r.Err != nil {
				status = r.Err.Error()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Key, status)
		}
		return err
	},
}
