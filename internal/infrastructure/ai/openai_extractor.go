package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/document"
	"github.com/jhoicas/lentefiscal/pkg/config"
)

var _ ports.DocumentExtractor = (*OpenAIExtractor)(nil)

const openAIMaxTokens = 4096

// PDFReader obtiene texto o páginas rasterizadas de un PDF.
type PDFReader interface {
	Read(ctx context.Context, data []byte) (document.Content, error)
}

// OpenAIExtractor extractor por defecto: chat completions con visión (gpt-4o).
// Imágenes como data URL; PDFs como texto, o como páginas JPEG si son escaneos.
type OpenAIExtractor struct {
	client      *openai.Client
	model       string
	temperature float32
	pdf         PDFReader
}

// NewOpenAIExtractor construye el cliente. OpenAIBaseURL permite apuntar a un proxy compatible.
func NewOpenAIExtractor(cfg config.LLMConfig, pdf PDFReader) *OpenAIExtractor {
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	return &OpenAIExtractor{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.OpenAIModel,
		temperature: cfg.Temperature,
		pdf:         pdf,
	}
}

// Extract arma el mensaje según el tipo de archivo y decodifica la respuesta JSON.
func (e *OpenAIExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*nfe.Record, error) {
	msg, err := e.userMessage(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		MaxTokens:   openAIMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return nil, openAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: OpenAI devolvió respuesta vacía", domain.ErrMalformedResponse)
	}
	return decodeRecord("openai", resp.Choices[0].Message.Content)
}

func (e *OpenAIExtractor) userMessage(ctx context.Context, data []byte, mimeType string) (openai.ChatCompletionMessage, error) {
	switch mimeType {
	case ports.MimePNG, ports.MimeJPEG:
		return visionMessage(extractionPrompt, mimeType, data), nil
	case ports.MimePDF:
		if e.pdf == nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("%w: lector de PDF no configurado", domain.ErrExtraction)
		}
		content, err := e.pdf.Read(ctx, data)
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("%w: leer pdf: %w", domain.ErrExtraction, err)
		}
		if content.HasText() {
			return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: textPrompt(content.Text)}, nil
		}
		return visionMessage(extractionPrompt, ports.MimeJPEG, content.Pages...), nil
	default:
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: openai no admite %q", domain.ErrUnsupportedFormat, mimeType)
	}
}

// visionMessage prompt más una parte image_url por imagen.
func visionMessage(prompt, mimeType string, images ...[]byte) openai.ChatCompletionMessage {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

func openAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: timeout o cancelación: %w", domain.ErrExtraction, ctx.Err())
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: OpenAI HTTP %d: %s", domain.ErrExtraction, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: OpenAI: %w", domain.ErrExtraction, err)
}
