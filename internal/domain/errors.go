package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
)

// Taxonomía de fallos del pipeline. Se comparan con errors.Is a través de los wraps.
var (
	// ErrStorage operación de bucket/objeto fallida.
	ErrStorage = errors.New("fallo de almacenamiento")
	// ErrExtraction servicio de extracción inalcanzable, timeout o respuesta rechazada.
	ErrExtraction = errors.New("fallo de extracción")
	// ErrMalformedResponse el servicio respondió pero la salida no encaja en el esquema.
	ErrMalformedResponse = errors.New("respuesta de extracción mal formada")
	// ErrInvalidRecord el registro extraído no supera la validación previa a la persistencia.
	ErrInvalidRecord = errors.New("registro fiscal inválido")
	// ErrPersistence violación de constraint o fallo de transacción.
	ErrPersistence = errors.New("fallo de persistencia")
	// ErrUnsupportedFormat el objeto no es imagen, PDF ni XML.
	ErrUnsupportedFormat = errors.New("formato de archivo no soportado")
)

// RelocationPhase indica en qué paso de copy-verify-delete falló una reubicación.
type RelocationPhase string

const (
	// PhaseCopy la copia falló: el objeto sigue solo en el bucket origen.
	PhaseCopy RelocationPhase = "copy"
	// PhaseVerify la copia no se pudo confirmar en destino: el origen se conserva.
	PhaseVerify RelocationPhase = "verify"
	// PhaseDelete la copia quedó confirmada pero el borrado falló: el objeto está en ambos buckets.
	PhaseDelete RelocationPhase = "delete"
)

// RelocationError describe una reubicación parcial entre buckets.
type RelocationError struct {
	Key    string
	Source string
	Dest   string
	Phase  RelocationPhase
	Err    error
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("mover %s de %s a %s (fase %s): %v", e.Key, e.Source, e.Dest, e.Phase, e.Err)
}

func (e *RelocationError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrStorage) sobre cualquier RelocationError.
func (e *RelocationError) Is(target error) bool { return target == ErrStorage }

// Duplicated indica si el objeto quedó presente en origen y destino.
func (e *RelocationError) Duplicated() bool { return e.Phase == PhaseDelete }
