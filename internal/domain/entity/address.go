package entity

// Address endereço do emitente (tabla endereco). Pertenece a un único Emitter.
type Address struct {
	ID           string
	Street       string
	Number       *string
	District     *string
	Municipality string
	State        string // UF
	PostalCode   *string
}
