package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

// InvoiceFilterRequest query de GET /api/invoices y de la exportación XLSX.
// From y To en formato AAAA-MM-DD; To es inclusivo.
type InvoiceFilterRequest struct {
	PageRequest
	CNPJ      string `query:"cnpj"`
	Emitter   string `query:"emitente"`
	AccessKey string `query:"chave"`
	From      string `query:"from"`
	To        string `query:"to"`
}

// InvoiceResponse fila del listado.
type InvoiceResponse struct {
	ID                string          `json:"id"`
	Number            *string         `json:"numero,omitempty"`
	Series            *string         `json:"serie,omitempty"`
	AccessKey         *string         `json:"chave_acesso,omitempty"`
	AuthorizationDate *string         `json:"data_autorizacao,omitempty"` // AAAA-MM-DD
	EmitterName       string          `json:"emitente"`
	EmitterTaxID      string          `json:"cnpj_emitente"`
	Payable           decimal.Decimal `json:"valor_total_a_pagar"`
	ItemCount         int             `json:"qtd_itens"`
	RegisteredAt      time.Time       `json:"data_registro"`
}

// InvoiceListResponse página de notas.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// InvoiceDetailResponse nota completa en el mismo formato que produce la extracción.
type InvoiceDetailResponse struct {
	ID           string      `json:"id"`
	RegisteredAt time.Time   `json:"data_registro"`
	SourceObject *string     `json:"arquivo_origem,omitempty"`
	NFe          *nfe.Record `json:"NFe"`
}

// UpdateInvoiceRequest body de PATCH /api/invoices/:id. Campos ausentes no cambian.
type UpdateInvoiceRequest struct {
	AccessKey         *string               `json:"chave_acesso"`
	Protocol          *string               `json:"protocolo"`
	AuthorizationDate *string               `json:"data_autorizacao"` // DD/MM/AAAA o AAAA-MM-DD
	AuthorizationTime *string               `json:"hora_autorizacao"`
	Number            *string               `json:"numero"`
	Series            *string               `json:"serie"`
	Consumer          *string               `json:"consumidor"`
	Payment           *UpdatePaymentRequest `json:"pagamento"`
	AdditionalData    *UpdateAdditionalData `json:"dados_adicionais"`
}

// UpdatePaymentRequest cambios del pagamento.
type UpdatePaymentRequest struct {
	Method string           `json:"forma_pagamento"`
	Amount *decimal.Decimal `json:"valor_pago"`
	Change *decimal.Decimal `json:"troco"`
	Detail *string          `json:"detalhe"`
}

// UpdateAdditionalData cambios de dados adicionais.
type UpdateAdditionalData struct {
	Cashier     *string `json:"caixa"`
	Operator    *string `json:"operador"`
	Salesperson *string `json:"vendedor"`
}
