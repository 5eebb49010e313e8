package dto

import "github.com/shopspring/decimal"

// PeriodSummaryDTO métricas de notas de un período.
type PeriodSummaryDTO struct {
	InvoiceCount  int             `json:"qtd_notas"`
	Payable       decimal.Decimal `json:"valor_total_a_pagar"`
	Discounts     decimal.Decimal `json:"descontos"`
	Taxes         decimal.Decimal `json:"tributos"`
	AverageTicket decimal.Decimal `json:"ticket_medio"`
}

// TopEmitterDTO emitente del ranking del mes.
type TopEmitterDTO struct {
	CNPJ         string          `json:"cnpj_emitente"`
	Name         string          `json:"emitente"`
	InvoiceCount int             `json:"qtd_notas"`
	Payable      decimal.Decimal `json:"valor_total_a_pagar"`
}

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
type DashboardSummaryDTO struct {
	Today       PeriodSummaryDTO `json:"hoje"`
	Month       PeriodSummaryDTO `json:"mes"`
	TopEmitters []TopEmitterDTO  `json:"top_emitentes"`
	DateLabel   string           `json:"periodo"`
}
