package sefaz

import "strings"

// =============================================================================
// Unidades de la Federación (sigla → código IBGE usado en cUF de la chave).
// =============================================================================

var ufCodes = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15", "AP": "16", "TO": "17",
	"MA": "21", "PI": "22", "CE": "23", "RN": "24", "PB": "25", "PE": "26", "AL": "27", "SE": "28", "BA": "29",
	"MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43",
	"MS": "50", "MT": "51", "GO": "52", "DF": "53",
}

// IsValidUF indica si la sigla corresponde a una de las 27 UF.
func IsValidUF(uf string) bool {
	_, ok := ufCodes[strings.ToUpper(strings.TrimSpace(uf))]
	return ok
}

// UFCode devuelve el código IBGE de la UF ("" si no existe).
func UFCode(uf string) string {
	return ufCodes[strings.ToUpper(strings.TrimSpace(uf))]
}

// =============================================================================
// Formas de pago (tPag del grupo detPag).
// =============================================================================

var paymentMethods = map[string]string{
	"01": "Dinheiro",
	"02": "Cheque",
	"03": "Cartão de Crédito",
	"04": "Cartão de Débito",
	"05": "Crédito Loja",
	"10": "Vale Alimentação",
	"11": "Vale Refeição",
	"12": "Vale Presente",
	"13": "Vale Combustível",
	"15": "Boleto Bancário",
	"16": "Depósito Bancário",
	"17": "PIX",
	"18": "Transferência bancária",
	"19": "Programa de fidelidade",
	"90": "Sem pagamento",
	"99": "Outros",
}

// PaymentMethodName traduce el código tPag a su descripción; si no se conoce devuelve el código.
func PaymentMethodName(code string) string {
	if name, ok := paymentMethods[strings.TrimSpace(code)]; ok {
		return name
	}
	return code
}
