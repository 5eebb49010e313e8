package entity

import "time"

// Emitter emitente de la nota (tabla emitente). Identidad natural = CNPJ.
type Emitter struct {
	ID                string
	TaxID             string // CNPJ, solo dígitos
	Name              string
	StateRegistration *string // inscrição estadual
	AddressID         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
