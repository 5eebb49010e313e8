package entity

import "github.com/shopspring/decimal"

// TaxSummary información de tributos aproximados (Lei 12.741/2012), tabla tributos.
type TaxSummary struct {
	ID             string
	Total          *decimal.Decimal
	Federal        *decimal.Decimal
	FederalPercent *decimal.Decimal
	State          *decimal.Decimal
	StatePercent   *decimal.Decimal
	Source         *string // ej. IBPT
	LegalBasis     *string
}
