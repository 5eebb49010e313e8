package ports

import (
	"context"

	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

// DocumentExtractor define el puerto de salida hacia el servicio de extracción.
// Cualquier adaptador (OpenAI, Anthropic, parser XML, mock) debe implementar esta interfaz.
//
// El resultado no es determinista y puede venir incompleto: el llamador lo valida antes
// de persistir. Los fallos envuelven domain.ErrExtraction (red, timeout, respuesta no 2xx)
// o domain.ErrMalformedResponse (respuesta recibida pero no interpretable). Sin reintentos.
// El contexto debe llevar el timeout por archivo.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*nfe.Record, error)
}
