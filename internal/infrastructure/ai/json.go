package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

// jsonBlockRe captura desde el primer '{' hasta el último '}' cuando el modelo añade prosa.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON extrae el objeto JSON de un texto libre:
//  1. quita el bloque markdown (```json … ```) si existe;
//  2. si no empieza por '{', toma el primer bloque { … }.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		after := text[idx+3:]
		if nl := strings.Index(after, "\n"); nl != -1 {
			after = after[nl+1:]
		}
		if end := strings.LastIndex(after, "```"); end != -1 {
			after = after[:end]
		}
		text = strings.TrimSpace(after)
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	return strings.TrimSpace(jsonBlockRe.FindString(text))
}

// refusal respuesta {"erro": "..."} cuando el modelo no reconoce una nota.
type refusal struct {
	Erro     string `json:"erro"`
	Mensagem string `json:"mensagem"`
}

// decodeRecord interpreta la salida textual del modelo como nfe.Record.
// Cualquier problema envuelve domain.ErrMalformedResponse.
func decodeRecord(provider, raw string) (*nfe.Record, error) {
	clean := extractJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("%w: %s no devolvió JSON (respuesta: %s)", domain.ErrMalformedResponse, provider, truncate(raw, 200))
	}
	var r refusal
	if err := json.Unmarshal([]byte(clean), &r); err == nil && r.Erro != "" {
		msg := r.Erro
		if r.Mensagem != "" {
			msg += ": " + r.Mensagem
		}
		return nil, fmt.Errorf("%w: %s rechazó el documento: %s", domain.ErrMalformedResponse, provider, msg)
	}
	rec, err := nfe.Decode([]byte(clean))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedResponse, provider, err)
	}
	return rec, nil
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
