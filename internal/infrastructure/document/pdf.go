// Package document abre PDFs de notas fiscales con MuPDF (go-fitz): texto embebido
// para DANFEs generados digitalmente y páginas rasterizadas para escaneos.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// DefaultJPEGQuality calidad usada al rasterizar páginas escaneadas.
const DefaultJPEGQuality = 85

// ErrEmptyDocument el PDF no tiene páginas.
var ErrEmptyDocument = errors.New("pdf sin páginas")

// Content contenido útil de un PDF: texto concatenado de las páginas y, si no hay
// capa de texto, las primeras páginas como JPEG.
type Content struct {
	Text  string
	Pages [][]byte
	Total int
}

// HasText indica si el PDF trae capa de texto aprovechable.
func (c Content) HasText() bool {
	return strings.TrimSpace(c.Text) != ""
}

// Reader lee PDFs desde memoria.
type Reader struct {
	maxPages int
	quality  int
}

// NewReader construye el lector. maxPages limita cuántas páginas se rasterizan (mínimo 1).
func NewReader(maxPages int) *Reader {
	return &Reader{maxPages: max(maxPages, 1), quality: DefaultJPEGQuality}
}

// Read extrae el texto de todas las páginas; si no hay texto rasteriza hasta maxPages.
func (r *Reader) Read(ctx context.Context, data []byte) (Content, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Content{}, fmt.Errorf("abrir pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return Content{}, ErrEmptyDocument
	}
	out := Content{Total: total}

	var sb strings.Builder
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return Content{}, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return Content{}, fmt.Errorf("texto de la página %d: %w", i+1, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}
	out.Text = sb.String()
	if out.HasText() {
		return out, nil
	}

	for i := 0; i < min(total, r.maxPages); i++ {
		if err := ctx.Err(); err != nil {
			return Content{}, err
		}
		img, err := doc.Image(i)
		if err != nil {
			return Content{}, fmt.Errorf("rasterizar página %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
			return Content{}, fmt.Errorf("codificar página %d como JPEG: %w", i+1, err)
		}
		out.Pages = append(out.Pages, buf.Bytes())
	}
	return out, nil
}
