package ai

import (
	"context"
	"fmt"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/document"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/nfexml"
	"github.com/jhoicas/lentefiscal/pkg/config"
)

var _ ports.DocumentExtractor = (*Router)(nil)

// Router envía los XML al parser determinista y el resto al modelo de visión.
type Router struct {
	llm ports.DocumentExtractor
	xml ports.DocumentExtractor
}

// NewRouter compone los dos extractores.
func NewRouter(llm, xml ports.DocumentExtractor) *Router {
	return &Router{llm: llm, xml: xml}
}

// Extract implementa ports.DocumentExtractor.
func (r *Router) Extract(ctx context.Context, data []byte, mimeType string) (*nfe.Record, error) {
	if ports.IsXML(mimeType) {
		return r.xml.Extract(ctx, data, mimeType)
	}
	return r.llm.Extract(ctx, data, mimeType)
}

// NewExtractor construye el extractor del proveedor configurado detrás del Router.
func NewExtractor(cfg config.LLMConfig) (*Router, error) {
	var llm ports.DocumentExtractor
	switch cfg.Provider {
	case "openai", "":
		llm = NewOpenAIExtractor(cfg, document.NewReader(cfg.PDFMaxPages))
	case "anthropic":
		llm = NewAnthropicExtractor(cfg)
	case "gemini":
		llm = NewGeminiExtractor(cfg)
	default:
		return nil, fmt.Errorf("LLM_PROVIDER desconocido: %q", cfg.Provider)
	}
	return NewRouter(llm, nfexml.NewParser()), nil
}
