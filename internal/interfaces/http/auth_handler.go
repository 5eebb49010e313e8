package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lentefiscal/internal/application/auth"
	"github.com/jhoicas/lentefiscal/internal/application/dto"
)

type authenticator interface {
	Login(username, password string) (*auth.LoginResult, error)
}

// AuthHandler maneja el login del operador.
type AuthHandler struct {
	uc authenticator
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc authenticator) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "username, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Username == "" || in.Password == "" {
		return badRequest(c, "VALIDATION", "username y password son requeridos")
	}
	out, err := h.uc.Login(in.Username, in.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.LoginResponse{
		Token:     out.Token,
		Username:  out.Username,
		Role:      out.Role,
		ExpiresAt: out.ExpiresAt,
	})
}
