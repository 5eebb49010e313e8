// Package webhook avisa al ERP de cada nota procesada con un POST del sobre {"NFe": ...}.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/pkg/config"
)

var _ ports.Notifier = (*Notifier)(nil)

// Cabeceras que acompañan al sobre.
const (
	HeaderInvoiceID = "X-Invoice-ID"
	HeaderCreated   = "X-Invoice-Created"
	HeaderSource    = "X-Source-Object"
)

// Notifier cliente HTTP del webhook del ERP.
type Notifier struct {
	url        string
	httpClient *http.Client
}

// NewNotifier construye el notificador con el timeout configurado.
func NewNotifier(cfg config.WebhookConfig) *Notifier {
	return &Notifier{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// NotifyProcessed envía el sobre de la nota. Cualquier estado fuera de 2xx es error.
func (n *Notifier) NotifyProcessed(ctx context.Context, inv ports.ProcessedInvoice) error {
	if inv.Record == nil {
		return fmt.Errorf("webhook: nota %s sin registro", inv.InvoiceID)
	}
	body, err := json.Marshal(inv.Record.Envelope())
	if err != nil {
		return fmt.Errorf("webhook: serializar nota: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: crear HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderInvoiceID, inv.InvoiceID)
	req.Header.Set(HeaderCreated, strconv.FormatBool(inv.Created))
	req.Header.Set(HeaderSource, inv.Bucket+"/"+inv.Key)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("webhook: timeout o cancelación: %w", ctx.Err())
		}
		return fmt.Errorf("webhook: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: ERP respondió HTTP %d", resp.StatusCode)
	}
	return nil
}
