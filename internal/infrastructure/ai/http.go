package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jhoicas/lentefiscal/internal/domain"
)

// maxResponseBytes límite de lectura de la respuesta; una nota con muchos ítems supera los 64 KB.
const maxResponseBytes = 1 << 20

// apiError cuerpo de error no 2xx ya interpretado por cada proveedor.
type apiError func(status int, body []byte) string

// postJSON envía payload como JSON y devuelve el cuerpo de una respuesta 200.
// Red, timeout y estados no 2xx envuelven domain.ErrExtraction.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any, describe apiError) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: serializar request: %w", domain.ErrExtraction, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: crear HTTP request: %w", domain.ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %w", domain.ErrExtraction, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %w", domain.ErrExtraction, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %w", domain.ErrExtraction, ctx.Err())
		}
		return nil, fmt.Errorf("%w: leer respuesta: %w", domain.ErrExtraction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtraction, describe(resp.StatusCode, raw))
	}
	return raw, nil
}
