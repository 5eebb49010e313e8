package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/pkg/config"
)

var _ ports.DocumentExtractor = (*GeminiExtractor)(nil)

// GeminiExtractor extractor sobre la API REST de Google Gemini (generateContent).
// responseMimeType=application/json obliga a devolver JSON puro.
type GeminiExtractor struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	httpClient  *http.Client
}

// NewGeminiExtractor construye el adaptador. model suele ser "gemini-1.5-flash".
func NewGeminiExtractor(cfg config.LLMConfig) *GeminiExtractor {
	return &GeminiExtractor{
		apiKey:      cfg.GeminiKey,
		model:       cfg.GeminiModel,
		baseURL:     strings.TrimRight(cfg.GeminiBaseURL, "/"),
		temperature: cfg.Temperature,
		httpClient:  &http.Client{},
	}
}

// ── Estructuras internas para la API de Gemini ────────────────────────────────

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inline_data,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type genConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract envía el documento inline (imagen o PDF) y devuelve el registro sin normalizar.
func (e *GeminiExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*nfe.Record, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY no configurado", domain.ErrExtraction)
	}
	switch mimeType {
	case ports.MimePNG, ports.MimeJPEG, ports.MimePDF:
	default:
		return nil, fmt.Errorf("%w: gemini no admite %q", domain.ErrUnsupportedFormat, mimeType)
	}

	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: extractionPrompt}}},
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInline{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
				{Text: "Extraia os dados desta nota fiscal."},
			},
		}},
		GenerationConfig: genConfig{
			ResponseMIMEType: "application/json",
			Temperature:      e.temperature,
			MaxOutputTokens:  8192,
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.baseURL, url.PathEscape(e.model), url.QueryEscape(e.apiKey))
	raw, err := postJSON(ctx, e.httpClient, endpoint, nil, payload, describeGeminiError)
	if err != nil {
		return nil, err
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: deserializar respuesta Gemini: %w", domain.ErrMalformedResponse, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: Gemini devolvió respuesta vacía", domain.ErrMalformedResponse)
	}
	return decodeRecord("gemini", resp.Candidates[0].Content.Parts[0].Text)
}

func describeGeminiError(status int, body []byte) string {
	var errResp geminiResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		return fmt.Sprintf("Gemini error %d: %s", errResp.Error.Code, errResp.Error.Message)
	}
	return fmt.Sprintf("Gemini HTTP %d", status)
}
