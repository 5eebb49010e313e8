package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lentefiscal/internal/application/dto"
	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/entity"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
	"github.com/jhoicas/lentefiscal/internal/domain/repository"
)

type invoiceQuery interface {
	Get(ctx context.Context, id string) (*entity.InvoiceAggregate, error)
	List(ctx context.Context, f repository.InvoiceFilter) (*fiscal.InvoicePage, error)
	UpdateHeader(ctx context.Context, id string, p fiscal.HeaderPatch) (*entity.InvoiceAggregate, error)
	Delete(ctx context.Context, id string) error
}

type invoiceDocuments interface {
	RenderPDF(ctx context.Context, id string) ([]byte, string, error)
	ExportXLSX(ctx context.Context, f repository.InvoiceFilter) ([]byte, error)
}

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InvoiceHandler consulta y mantenimiento de las notas persistidas (protegido).
type InvoiceHandler struct {
	query invoiceQuery
	docs  invoiceDocuments
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(query invoiceQuery, docs invoiceDocuments) *InvoiceHandler {
	return &InvoiceHandler{query: query, docs: docs}
}

// List godoc
// @Summary      Listar notas
// @Tags         invoices
// @Produce      json
// @Param        cnpj      query  string  false  "CNPJ del emitente"
// @Param        emitente  query  string  false  "nombre del emitente (parcial)"
// @Param        chave     query  string  false  "chave de acesso"
// @Param        from      query  string  false  "registradas desde AAAA-MM-DD"
// @Param        to        query  string  false  "registradas hasta AAAA-MM-DD (inclusive)"
// @Param        limit     query  int     false  "máximo 100"
// @Param        offset    query  int     false  "desplazamiento"
// @Success      200  {object}  dto.InvoiceListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return badRequest(c, "VALIDATION", err.Error())
	}
	page, err := h.query.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.InvoiceListResponse{
		Items: make([]dto.InvoiceResponse, 0, len(page.Items)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: page.Total},
	}
	for _, s := range page.Items {
		out.Items = append(out.Items, toInvoiceResponse(s))
	}
	return c.JSON(out)
}

// Export godoc
// @Summary      Exportar notas a XLSX
// @Tags         invoices
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        cnpj  query  string  false  "CNPJ del emitente"
// @Param        from  query  string  false  "AAAA-MM-DD"
// @Param        to    query  string  false  "AAAA-MM-DD"
// @Success      200
// @Router       /api/invoices/export.xlsx [get]
func (h *InvoiceHandler) Export(c *fiber.Ctx) error {
	f, err := parseFilter(c)
	if err != nil {
		return badRequest(c, "VALIDATION", err.Error())
	}
	data, err := h.docs.ExportXLSX(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, mimeXLSX)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="notas.xlsx"`)
	return c.Send(data)
}

// Get godoc
// @Summary      Detalle de una nota
// @Tags         invoices
// @Produce      json
// @Param        id  path  string  true  "ID de la nota"
// @Success      200  {object}  dto.InvoiceDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) Get(c *fiber.Ctx) error {
	agg, err := h.query.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toDetailResponse(agg))
}

// PDF godoc
// @Summary      Resumen imprimible de la nota
// @Tags         invoices
// @Produce      application/pdf
// @Param        id  path  string  true  "ID de la nota"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/pdf [get]
func (h *InvoiceHandler) PDF(c *fiber.Ctx) error {
	data, filename, err := h.docs.RenderPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, filename))
	return c.Send(data)
}

// Update godoc
// @Summary      Editar cabecera, pagamento y dados adicionais
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la nota"
// @Param        body  body  dto.UpdateInvoiceRequest  true  "campos a cambiar"
// @Success      200  {object}  dto.InvoiceDetailResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [patch]
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	patch, err := toHeaderPatch(in)
	if err != nil {
		return respondError(c, err)
	}
	agg, err := h.query.UpdateHeader(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toDetailResponse(agg))
}

// Delete godoc
// @Summary      Eliminar una nota y sus ítems
// @Tags         invoices
// @Param        id  path  string  true  "ID de la nota"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	if err := h.query.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseFilter(c *fiber.Ctx) (repository.InvoiceFilter, error) {
	var in dto.InvoiceFilterRequest
	if err := c.QueryParser(&in); err != nil {
		return repository.InvoiceFilter{}, fmt.Errorf("parámetros inválidos: %w", err)
	}
	in.DefaultPage()
	f := repository.InvoiceFilter{
		EmitterTaxID: in.CNPJ,
		EmitterName:  in.Emitter,
		AccessKey:    in.AccessKey,
		Limit:        in.Limit,
		Offset:       in.Offset,
	}
	if in.From != "" {
		from, err := time.Parse(time.DateOnly, in.From)
		if err != nil {
			return f, fmt.Errorf("from %q no tiene formato AAAA-MM-DD", in.From)
		}
		f.From = &from
	}
	if in.To != "" {
		to, err := time.Parse(time.DateOnly, in.To)
		if err != nil {
			return f, fmt.Errorf("to %q no tiene formato AAAA-MM-DD", in.To)
		}
		to = to.AddDate(0, 0, 1)
		f.To = &to
	}
	return f, nil
}

func toInvoiceResponse(s entity.InvoiceSummary) dto.InvoiceResponse {
	out := dto.InvoiceResponse{
		ID:           s.ID,
		Number:       s.Number,
		Series:       s.Series,
		AccessKey:    s.AccessKey,
		EmitterName:  s.EmitterName,
		EmitterTaxID: s.EmitterTaxID,
		Payable:      s.Payable,
		ItemCount:    s.ItemCount,
		RegisteredAt: s.RegisteredAt,
	}
	if s.AuthorizationDate != nil {
		d := s.AuthorizationDate.Format(time.DateOnly)
		out.AuthorizationDate = &d
	}
	return out
}

func toDetailResponse(agg *entity.InvoiceAggregate) dto.InvoiceDetailResponse {
	return dto.InvoiceDetailResponse{
		ID:           agg.Invoice.ID,
		RegisteredAt: agg.Invoice.RegisteredAt,
		SourceObject: agg.Invoice.SourceObject,
		NFe:          nfe.FromAggregate(agg),
	}
}

var patchDateLayouts = []string{"02/01/2006", time.DateOnly}

func toHeaderPatch(in dto.UpdateInvoiceRequest) (fiscal.HeaderPatch, error) {
	p := fiscal.HeaderPatch{
		AccessKey:         in.AccessKey,
		Protocol:          in.Protocol,
		AuthorizationTime: in.AuthorizationTime,
		Number:            in.Number,
		Series:            in.Series,
		Consumer:          in.Consumer,
	}
	if in.AuthorizationDate != nil {
		var parsed bool
		for _, layout := range patchDateLayouts {
			if d, err := time.Parse(layout, *in.AuthorizationDate); err == nil {
				p.AuthorizationDate = &d
				parsed = true
				break
			}
		}
		if !parsed {
			return p, fmt.Errorf("%w: data_autorizacao %q no tiene formato DD/MM/AAAA", domain.ErrInvalidInput, *in.AuthorizationDate)
		}
	}
	if pay := in.Payment; pay != nil {
		p.Payment = &fiscal.PaymentPatch{Method: pay.Method, Amount: pay.Amount, Change: pay.Change, Detail: pay.Detail}
	}
	if ad := in.AdditionalData; ad != nil {
		p.AdditionalData = &entity.AdditionalData{Cashier: ad.Cashier, Operator: ad.Operator, Salesperson: ad.Salesperson}
	}
	return p, nil
}
