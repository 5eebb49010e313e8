// Package auth autentica al operador del portal y emite su token de sesión.
package auth

import (
	"crypto/subtle"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/pkg/jwt"
)

// RoleAdmin único rol del portal.
const RoleAdmin = "admin"

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Credentials operador configurado. PasswordHash (bcrypt) tiene prioridad; Password en claro
// solo se acepta si AllowPlain está activo (development).
type Credentials struct {
	User         string
	PasswordHash string
	Password     string
	AllowPlain   bool
}

// LoginResult token emitido y su vencimiento.
type LoginResult struct {
	Token     string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// AuthUseCase login del operador único.
type AuthUseCase struct {
	creds  Credentials
	jwtCfg JWTConfig
	now    func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(creds Credentials, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{creds: creds, jwtCfg: jwtCfg, now: time.Now}
}

// Login verifica usuario y password y genera el JWT. Credenciales incorrectas devuelven
// domain.ErrUnauthorized sin distinguir usuario de password.
func (uc *AuthUseCase) Login(username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidInput
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(uc.creds.User)) == 1
	if !uc.passwordMatches(password) || !userOK {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, username, RoleAdmin, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		Username:  username,
		Role:      RoleAdmin,
		ExpiresAt: uc.now().Add(time.Duration(uc.jwtCfg.ExpMinutes) * time.Minute),
	}, nil
}

func (uc *AuthUseCase) passwordMatches(password string) bool {
	if uc.creds.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(uc.creds.PasswordHash), []byte(password)) == nil
	}
	if uc.creds.AllowPlain && uc.creds.Password != "" {
		return subtle.ConstantTimeCompare([]byte(password), []byte(uc.creds.Password)) == 1
	}
	return false
}

// HashPassword genera el hash bcrypt para ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", domain.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
