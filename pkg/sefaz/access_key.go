package sefaz

import (
	"fmt"
	"strings"
)

// AccessKeyLength longitud de la chave de acesso de NF-e/NFC-e.
const AccessKeyLength = 44

// Modelos de documento fiscal presentes en la chave.
const (
	ModelNFe  = "55"
	ModelNFCe = "65"
)

// AccessKey es la chave de acesso descompuesta en sus campos.
//
//	cUF(2) AAMM(4) CNPJ(14) mod(2) serie(3) nNF(9) tpEmis(1) cNF(8) cDV(1)
type AccessKey struct {
	UF           string
	YearMonth    string
	CNPJ         string
	Model        string
	Series       string
	Number       string
	EmissionType string
	Code         string
	CheckDigit   byte
}

// ValidateAccessKey valida longitud y dígito verificador (módulo 11, pesos 2..9 de derecha a izquierda).
func ValidateAccessKey(key string) error {
	digits := OnlyDigits(key)
	if len(digits) != AccessKeyLength {
		return fmt.Errorf("sefaz: chave de acesso debe tener %d dígitos, se encontraron %d", AccessKeyLength, len(digits))
	}
	expected := AccessKeyCheckDigit(digits[:43])
	if digits[43] != expected {
		return fmt.Errorf("sefaz: dígito verificador de la chave inválido: esperado %c, recibido %c", expected, digits[43])
	}
	return nil
}

// AccessKeyCheckDigit calcula el cDV para los 43 primeros dígitos.
func AccessKeyCheckDigit(base43 string) byte {
	var sum int
	weight := 2
	for i := len(base43) - 1; i >= 0; i-- {
		sum += int(base43[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + (11 - r))
}

// ParseAccessKey valida y descompone la chave.
func ParseAccessKey(key string) (*AccessKey, error) {
	if err := ValidateAccessKey(key); err != nil {
		return nil, err
	}
	d := OnlyDigits(key)
	return &AccessKey{
		UF:           d[0:2],
		YearMonth:    d[2:6],
		CNPJ:         d[6:20],
		Model:        d[20:22],
		Series:       d[22:25],
		Number:       d[25:34],
		EmissionType: d[34:35],
		Code:         d[35:43],
		CheckDigit:   d[43],
	}, nil
}

// FormatAccessKey agrupa la chave en bloques de 4 dígitos como en el DANFE.
func FormatAccessKey(key string) string {
	d := OnlyDigits(key)
	var b strings.Builder
	for i := 0; i < len(d); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(d) {
			end = len(d)
		}
		b.WriteString(d[i:end])
	}
	return b.String()
}
