package http

import (
	"context"
	"errors"
	"io"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lentefiscal/internal/application/dto"
	"github.com/jhoicas/lentefiscal/internal/application/inbox"
	"github.com/jhoicas/lentefiscal/internal/application/ports"
)

type inboxService interface {
	Resolve(name string) (string, error)
	List(ctx context.Context, bucket string) ([]inbox.Entry, error)
	Upload(ctx context.Context, filename string, data []byte) (ports.ObjectInfo, error)
	Download(ctx context.Context, bucket, key string) ([]byte, string, error)
	Delete(ctx context.Context, bucket, key string) error
	ErrorLog(ctx context.Context, key string) (*ports.ErrorLog, error)
	Reprocess(ctx context.Context, keys ...string) ([]inbox.ReprocessResult, error)
}

// ObjectHandler operaciones manuales sobre los buckets (protegido).
type ObjectHandler struct {
	uc inboxService
}

// NewObjectHandler construye el handler.
func NewObjectHandler(uc inboxService) *ObjectHandler {
	return &ObjectHandler{uc: uc}
}

// List godoc
// @Summary      Listar archivos de un bucket
// @Tags         buckets
// @Produce      json
// @Param        bucket  path  string  true  "received | processed | error"
// @Success      200  {object}  dto.ObjectListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/buckets/{bucket}/objects [get]
func (h *ObjectHandler) List(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	entries, err := h.uc.List(c.UserContext(), bucket)
	if err != nil {
		return respondError(c, err)
	}
	name, _ := h.uc.Resolve(bucket)
	return c.JSON(dto.ObjectListResponse{Bucket: name, Objects: entries})
}

// Upload godoc
// @Summary      Subir una nota al bucket de recibidos
// @Tags         buckets
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "png, jpg, jpeg, pdf o xml"
// @Success      201  {object}  ports.ObjectInfo
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/buckets/received/objects [post]
func (h *ObjectHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "VALIDATION", "campo multipart 'file' requerido")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "INVALID_BODY", "no se pudo leer el archivo")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return badRequest(c, "INVALID_BODY", "no se pudo leer el archivo")
	}
	info, err := h.uc.Upload(c.UserContext(), fh.Filename, data)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

// Download godoc
// @Summary      Descargar un archivo
// @Tags         buckets
// @Produce      octet-stream
// @Param        bucket  path  string  true  "received | processed | error"
// @Param        key     path  string  true  "clave del objeto"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/buckets/{bucket}/objects/{key} [get]
func (h *ObjectHandler) Download(c *fiber.Ctx) error {
	key, err := wildcardKey(c)
	if err != nil {
		return badRequest(c, "VALIDATION", "clave inválida")
	}
	data, mime, err := h.uc.Download(c.UserContext(), c.Params("bucket"), key)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, mime)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+key+`"`)
	return c.Send(data)
}

// Delete godoc
// @Summary      Eliminar un archivo (en error también su log)
// @Tags         buckets
// @Param        bucket  path  string  true  "received | processed | error"
// @Param        key     path  string  true  "clave del objeto"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/buckets/{bucket}/objects/{key} [delete]
func (h *ObjectHandler) Delete(c *fiber.Ctx) error {
	key, err := wildcardKey(c)
	if err != nil {
		return badRequest(c, "VALIDATION", "clave inválida")
	}
	if err := h.uc.Delete(c.UserContext(), c.Params("bucket"), key); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ErrorLog godoc
// @Summary      Ver el log de error de un archivo
// @Tags         buckets
// @Produce      json
// @Param        key  path  string  true  "clave del documento"
// @Success      200  {object}  ports.ErrorLog
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/buckets/error/logs/{key} [get]
func (h *ObjectHandler) ErrorLog(c *fiber.Ctx) error {
	key, err := wildcardKey(c)
	if err != nil {
		return badRequest(c, "VALIDATION", "clave inválida")
	}
	entry, err := h.uc.ErrorLog(c.UserContext(), key)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entry)
}

// ReprocessOne godoc
// @Summary      Devolver un archivo de error a recibidos
// @Tags         buckets
// @Produce      json
// @Param        key  path  string  true  "clave del documento"
// @Success      200  {array}  dto.ReprocessResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/buckets/error/objects/{key}/reprocess [post]
func (h *ObjectHandler) ReprocessOne(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil || key == "" {
		return badRequest(c, "VALIDATION", "clave inválida")
	}
	if _, err := h.uc.Reprocess(c.UserContext(), key); err != nil {
		return respondError(c, err)
	}
	return c.JSON([]dto.ReprocessResponse{{Key: key, OK: true}})
}

// Reprocess godoc
// @Summary      Devolver varios (o todos) los archivos de error a recibidos
// @Description  Con fallos parciales responde 207 con el resultado de cada clave.
// @Tags         buckets
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReprocessRequest  false  "claves; vacío = todas"
// @Success      200  {array}  dto.ReprocessResponse
// @Success      207  {array}  dto.ReprocessResponse
// @Router       /api/buckets/error/reprocess [post]
func (h *ObjectHandler) Reprocess(c *fiber.Ctx) error {
	var in dto.ReprocessRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
	}
	results, err := h.uc.Reprocess(c.UserContext(), in.Keys...)
	if err != nil && len(results) == 0 {
		return respondError(c, err)
	}
	out := make([]dto.ReprocessResponse, 0, len(results))
	status := fiber.StatusOK
	for _, r := range results {
		item := dto.ReprocessResponse{Key: r.Key, OK: r.Err == nil}
		if r.Err != nil {
			item.Error = r.Err.Error()
			status = fiber.StatusMultiStatus
		}
		out = append(out, item)
	}
	return c.Status(status).JSON(out)
}

func wildcardKey(c *fiber.Ctx) (string, error) {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.New("clave vacía")
	}
	return key, nil
}
