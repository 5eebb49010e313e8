package entity

import "github.com/shopspring/decimal"

// Item línea de la nota (tabla item). Number es el ordinal dentro de la nota.
type Item struct {
	ID          string
	InvoiceID   string
	Number      int
	ProductCode *string
	Description string
	Quantity    decimal.Decimal // 4 decimales
	Unit        string
	UnitPrice   decimal.Decimal
	Discount    *decimal.Decimal
	Total       decimal.Decimal
}
