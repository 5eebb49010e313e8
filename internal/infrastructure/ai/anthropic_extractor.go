package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/pkg/config"
)

var _ ports.DocumentExtractor = (*AnthropicExtractor)(nil)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

// AnthropicExtractor extractor sobre la Messages API de Anthropic (Claude).
// Imágenes y PDFs van como bloques base64; Claude lee el PDF sin rasterizar.
type AnthropicExtractor struct {
	apiKey      string
	model       string
	url         string
	temperature float32
	httpClient  *http.Client
}

// NewAnthropicExtractor construye el adaptador. Sin timeout propio: lo impone el contexto por archivo.
func NewAnthropicExtractor(cfg config.LLMConfig) *AnthropicExtractor {
	return &AnthropicExtractor{
		apiKey:      cfg.AnthropicKey,
		model:       cfg.AnthropicModel,
		url:         cfg.AnthropicURL,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{},
	}
}

// ── Estructuras del protocolo Messages API ────────────────────────────────────

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract envía el documento a Claude y devuelve el registro sin normalizar.
func (e *AnthropicExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*nfe.Record, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY no configurado", domain.ErrExtraction)
	}
	var block anthropicBlock
	switch mimeType {
	case ports.MimePNG, ports.MimeJPEG:
		block = anthropicBlock{Type: "image", Source: &anthropicSource{Type: "base64", MediaType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}
	case ports.MimePDF:
		block = anthropicBlock{Type: "document", Source: &anthropicSource{Type: "base64", MediaType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}
	default:
		return nil, fmt.Errorf("%w: anthropic no admite %q", domain.ErrUnsupportedFormat, mimeType)
	}

	payload := anthropicRequest{
		Model:       e.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: e.temperature,
		System:      extractionPrompt,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicBlock{block, {Type: "text", Text: "Extraia os dados desta nota fiscal."}},
		}},
	}
	headers := map[string]string{
		"x-api-key":         e.apiKey,
		"anthropic-version": anthropicVersion,
	}

	raw, err := postJSON(ctx, e.httpClient, e.url, headers, payload, describeAnthropicError)
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: deserializar respuesta Anthropic: %w", domain.ErrMalformedResponse, err)
	}
	for _, c := range resp.Content {
		if c.Type == "text" && c.Text != "" {
			return decodeRecord("anthropic", c.Text)
		}
	}
	return nil, fmt.Errorf("%w: Claude devolvió respuesta vacía", domain.ErrMalformedResponse)
}

func describeAnthropicError(status int, body []byte) string {
	var errResp anthropicResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		return fmt.Sprintf("Anthropic HTTP %d (%s): %s", status, errResp.Error.Type, errResp.Error.Message)
	}
	return fmt.Sprintf("Anthropic HTTP %d: %s", status, truncate(string(body), 200))
}
