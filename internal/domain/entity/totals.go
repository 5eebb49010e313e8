package entity

import "github.com/shopspring/decimal"

// Totals totales de la nota (tabla totais). Montos no negativos.
type Totals struct {
	ID           string
	ItemCount    int
	Gross        *decimal.Decimal // valor total dos produtos
	Discounts    decimal.Decimal
	Surcharges   decimal.Decimal
	Payable      decimal.Decimal
	TaxSummaryID string
}
