package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice cabecera de la NF-e/NFC-e (tabla nfe), raíz del agregado.
type Invoice struct {
	ID                string
	EmitterID         string
	AccessKey         *string // chave de acesso; clave natural de deduplicación
	Protocol          *string
	AuthorizationDate *time.Time
	AuthorizationTime *string // HH:MM:SS
	Number            *string
	Series            *string
	Consumer          *string
	TotalsID          string
	PaymentID         string
	AdditionalDataID  *string
	SourceObject      *string // objeto del bucket del que se extrajo
	RegisteredAt      time.Time
}

// InvoiceAggregate nota completa con todas sus entidades relacionadas.
type InvoiceAggregate struct {
	Invoice        Invoice
	Emitter        Emitter
	Address        Address
	Totals         Totals
	TaxSummary     TaxSummary
	Payment        Payment
	AdditionalData *AdditionalData
	Items          []Item
}

// InvoiceSummary fila de listado (emitente + total a pagar).
type InvoiceSummary struct {
	ID                string
	Number            *string
	Series            *string
	AccessKey         *string
	AuthorizationDate *time.Time
	EmitterName       string
	EmitterTaxID      string
	Payable           decimal.Decimal
	ItemCount         int
	RegisteredAt      time.Time
}
