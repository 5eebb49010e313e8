package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lentefiscal/internal/application/analytics"
	"github.com/jhoicas/lentefiscal/internal/application/dto"
)

type dashboardService interface {
	GetSummary(ctx context.Context) (*analytics.Summary, error)
}

// DashboardHandler resumen de notas del portal.
type DashboardHandler struct {
	uc dashboardService
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc dashboardService) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary godoc
// @Summary      Resumen de notas del día y del mes
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.DashboardSummaryDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	sum, err := h.uc.GetSummary(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	out := dto.DashboardSummaryDTO{
		Today:       toPeriodDTO(sum.Today),
		Month:       toPeriodDTO(sum.Month),
		TopEmitters: make([]dto.TopEmitterDTO, 0, len(sum.TopEmitters)),
		DateLabel:   sum.DateLabel,
	}
	for _, e := range sum.TopEmitters {
		out.TopEmitters = append(out.TopEmitters, dto.TopEmitterDTO{
			CNPJ:         e.TaxID,
			Name:         e.Name,
			InvoiceCount: e.InvoiceCount,
			Payable:      e.Payable.Round(2),
		})
	}
	return c.JSON(out)
}

func toPeriodDTO(p analytics.PeriodSummary) dto.PeriodSummaryDTO {
	return dto.PeriodSummaryDTO{
		InvoiceCount:  p.InvoiceCount,
		Payable:       p.Payable,
		Discounts:     p.Discounts,
		Taxes:         p.Taxes,
		AverageTicket: p.AverageTicket,
	}
}
