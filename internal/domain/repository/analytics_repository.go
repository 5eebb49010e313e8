package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceMetrics agregados de las notas registradas en un período.
type InvoiceMetrics struct {
	InvoiceCount int
	Payable      decimal.Decimal // Σ valor_total_a_pagar
	Discounts    decimal.Decimal // Σ descontos_gerais
	Taxes        decimal.Decimal // Σ total_tributos_incidentes (nulos cuentan como cero)
}

// EmitterMetrics agregados por emitente en un período.
type EmitterMetrics struct {
	TaxID        string
	Name         string
	InvoiceCount int
	Payable      decimal.Decimal
}

// AnalyticsRepository consultas de solo lectura para el resumen del portal.
// El período se aplica sobre data_registro: from <= data_registro < to.
type AnalyticsRepository interface {
	// Metrics usa COALESCE: sin notas en el período devuelve ceros.
	Metrics(ctx context.Context, from, to time.Time) (InvoiceMetrics, error)

	// TopEmitters devuelve hasta limit emitentes ordenados por total a pagar descendente.
	TopEmitters(ctx context.Context, from, to time.Time, limit int) ([]EmitterMetrics, error)
}
