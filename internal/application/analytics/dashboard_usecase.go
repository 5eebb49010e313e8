// Package analytics contiene el resumen de notas registradas que muestra el portal.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

const dashboardTopEmitters = 5 // emitentes en el widget del resumen

// PeriodSummary métricas de un período.
type PeriodSummary struct {
	InvoiceCount  int
	Payable       decimal.Decimal
	Discounts     decimal.Decimal
	Taxes         decimal.Decimal
	AverageTicket decimal.Decimal
}

// Summary resumen del día y del mes en curso.
type Summary struct {
	Today       PeriodSummary
	Month       PeriodSummary
	TopEmitters []repository.EmitterMetrics
	DateLabel   string
}

// DashboardUseCase genera el resumen de notas del día y del mes en curso.
//
// Fuente de datos: AnalyticsRepository (consultas read-only).
type DashboardUseCase struct {
	analyticsRepo repository.AnalyticsRepository
	now           func() time.Time
}

// NewDashboardUseCase construye el caso de uso. now nil usa time.Now.
func NewDashboardUseCase(analyticsRepo repository.AnalyticsRepository, now func() time.Time) *DashboardUseCase {
	if now == nil {
		now = time.Now
	}
	return &DashboardUseCase{analyticsRepo: analyticsRepo, now: now}
}

// GetSummary lanza en paralelo:
//  1. Metrics(hoy)
//  2. Metrics(mes)
//  3. TopEmitters(mes, top 5)
func (uc *DashboardUseCase) GetSummary(ctx context.Context) (*Summary, error) {
	now := uc.now()

	// Hoy: [00:00, mañana 00:00). Mes: [día 1, mañana 00:00).
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := todayStart.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	type metricsResult struct {
		m   repository.InvoiceMetrics
		err error
	}
	type topResult struct {
		emitters []repository.EmitterMetrics
		err      error
	}

	todayCh := make(chan metricsResult, 1)
	monthCh := make(chan metricsResult, 1)
	topCh := make(chan topResult, 1)

	go func() {
		m, err := uc.analyticsRepo.Metrics(ctx, todayStart, tomorrow)
		todayCh <- metricsResult{m, err}
	}()
	go func() {
		m, err := uc.analyticsRepo.Metrics(ctx, monthStart, tomorrow)
		monthCh <- metricsResult{m, err}
	}()
	go func() {
		e, err := uc.analyticsRepo.TopEmitters(ctx, monthStart, tomorrow, dashboardTopEmitters)
		topCh <- topResult{e, err}
	}()

	today := <-todayCh
	month := <-monthCh
	top := <-topCh

	if today.err != nil {
		return nil, fmt.Errorf("resumen: métricas de hoy: %w", today.err)
	}
	if month.err != nil {
		return nil, fmt.Errorf("resumen: métricas del mes: %w", month.err)
	}
	if top.err != nil {
		return nil, fmt.Errorf("resumen: top emitentes: %w", top.err)
	}

	return &Summary{
		Today:       toPeriod(today.m),
		Month:       toPeriod(month.m),
		TopEmitters: top.emitters,
		DateLabel:   monthLabel(now),
	}, nil
}

func toPeriod(m repository.InvoiceMetrics) PeriodSummary {
	p := PeriodSummary{
		InvoiceCount: m.InvoiceCount,
		Payable:      m.Payable.Round(2),
		Discounts:    m.Discounts.Round(2),
		Taxes:        m.Taxes.Round(2),
	}
	if m.InvoiceCount > 0 {
		p.AverageTicket = m.Payable.Div(decimal.NewFromInt(int64(m.InvoiceCount))).Round(2)
	}
	return p
}

// monthLabel etiqueta del mes con los nombres que usan las notas, ej: "Outubro 2025".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
		"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}
