package entity

// AdditionalData dados adicionais impresos en el cupón (tabla dados_adicionais).
type AdditionalData struct {
	ID          string
	Cashier     *string
	Operator    *string
	Salesperson *string
}
