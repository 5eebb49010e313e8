package entity

import "github.com/shopspring/decimal"

// Payment pagamento (tabla pagamento).
type Payment struct {
	ID     string
	Method string
	Amount decimal.Decimal
	Change *decimal.Decimal
	Detail *string
}
