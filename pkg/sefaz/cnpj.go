// Package sefaz contiene validaciones y catálogos del leiaute NF-e/NFC-e
// (Manual de Orientação do Contribuinte, SEFAZ / ENCAT).
package sefaz

import (
	"fmt"
	"strings"
)

// pesos para los dos dígitos verificadores del CNPJ (módulo 11).
var (
	cnpjWeights1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCNPJ valida que el CNPJ (con o sin puntuación) tenga 14 dígitos
// y dígitos verificadores correctos. "11.222.333/0001-81" y "11222333000181" son equivalentes.
func ValidateCNPJ(cnpj string) error {
	digits := OnlyDigits(cnpj)
	if len(digits) != 14 {
		return fmt.Errorf("sefaz: CNPJ debe tener 14 dígitos, se encontraron %d", len(digits))
	}
	if strings.Count(digits, digits[:1]) == len(digits) {
		return fmt.Errorf("sefaz: CNPJ %s inválido (dígitos repetidos)", digits)
	}
	dv1 := cnpjDigit(digits[:12], cnpjWeights1[:])
	dv2 := cnpjDigit(digits[:12]+string(dv1), cnpjWeights2[:])
	if digits[12] != dv1 || digits[13] != dv2 {
		return fmt.Errorf("sefaz: dígitos verificadores del CNPJ inválidos: esperado %c%c, recibido %s", dv1, dv2, digits[12:])
	}
	return nil
}

// FormatCNPJ devuelve el CNPJ con máscara 00.000.000/0000-00; si no tiene 14 dígitos lo devuelve tal cual.
func FormatCNPJ(cnpj string) string {
	d := OnlyDigits(cnpj)
	if len(d) != 14 {
		return cnpj
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

func cnpjDigit(base string, weights []int) byte {
	var sum int
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + (11 - r))
}

// OnlyDigits deja solo dígitos 0-9 (CNPJ, CEP, chave de acesso).
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
