// Package pipeline orquesta el ciclo de polling: lista el bucket de recibidos y lleva cada
// archivo por descarga, extracción, validación, persistencia y reubicación.
package pipeline

import (
	"fmt"
	"time"
)

// FileState estado de un archivo dentro del ciclo.
//
//	DISCOVERED -> DOWNLOADING -> EXTRACTING -> VALIDATING -> PERSISTING -> RELOCATING -> DONE
//	cualquier fallo previo a RELOCATING -> ERROR_RELOCATING
type FileState string

const (
	StateDiscovered      FileState = "DISCOVERED"
	StateDownloading     FileState = "DOWNLOADING"
	StateExtracting      FileState = "EXTRACTING"
	StateValidating      FileState = "VALIDATING"
	StatePersisting      FileState = "PERSISTING"
	StateRelocating      FileState = "RELOCATING"
	StateDone            FileState = "DONE"
	StateErrorRelocating FileState = "ERROR_RELOCATING"
)

// Outcome resultado final de un archivo en un ciclo.
type Outcome string

const (
	// OutcomeProcessed persistido y movido a processed.
	OutcomeProcessed Outcome = "processed"
	// OutcomeFailed movido a error con su log.
	OutcomeFailed Outcome = "error"
	// OutcomeVanished desapareció entre el listado y la descarga; no se mueve nada.
	OutcomeVanished Outcome = "vanished"
	// OutcomeRelocationPending la reubicación falló; el próximo ciclo lo vuelve a tomar.
	OutcomeRelocationPending Outcome = "relocation_pending"
	// OutcomeInterrupted el proceso se detuvo a mitad; el archivo sigue en recibidos.
	OutcomeInterrupted Outcome = "interrupted"
)

// FileError fallo de un archivo: el estado en el que ocurrió y la causa.
type FileError struct {
	Key   string
	State FileState
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: fallo en %s: %v", e.Key, e.State, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FileResult lo ocurrido con un archivo.
type FileResult struct {
	Key       string
	DestKey   string // clave final en procesados o error
	State     FileState
	Outcome   Outcome
	InvoiceID string
	Created   bool
	Err       error
	Duration  time.Duration
}

// CycleReport resumen de un ciclo. ListErr != nil significa ciclo abortado.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	ListErr   error
	Files     []FileResult
}

// Count cuántos archivos terminaron con el resultado o.
func (r CycleReport) Count(o Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

// Result devuelve el resultado de key, si se procesó en el ciclo.
func (r CycleReport) Result(key string) (FileResult, bool) {
	for _, f := range r.Files {
		if f.Key == key {
			return f, true
		}
	}
	return FileResult{}, false
}
