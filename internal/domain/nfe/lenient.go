package nfe

import (
	"bytes"
	"encoding/json"
	"strings"
)

// numericFields claves cuyo valor se decodifica como decimal.
var numericFields = map[string]bool{
	"Numero_Item":               true,
	"Quantidade":                true,
	"Valor_Unitario":            true,
	"Desconto_Item":             true,
	"Valor_Total_Item":          true,
	"Qtd_Total_Itens":           true,
	"Valor_Total_Produtos":      true,
	"Descontos_Gerais":          true,
	"Acrescimos_Gerais":         true,
	"Valor_Total_a_Pagar":       true,
	"Total_Tributos_Incidentes": true,
	"Tributos_Federais":         true,
	"Percentual_Federais":       true,
	"Tributos_Estaduais":        true,
	"Percentual_Estaduais":      true,
	"Valor_Pago":                true,
	"Troco":                     true,
}

// relax reescribe la respuesta del modelo antes del decode tipado: "null" entre comillas
// pasa a null, un decimal vacío también, y los montos con coma decimal ("1.234,56",
// "R$ 35,50") pasan a notación con punto. Si data no es JSON se devuelve tal cual.
func relax(data []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return data
	}
	out, err := json.Marshal(relaxValue("", doc))
	if err != nil {
		return data
	}
	return out
}

func relaxValue(key string, v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = relaxValue(k, child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = relaxValue(key, child)
		}
		return t
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return nil
		}
		if !numericFields[key] {
			return t
		}
		if s == "" {
			return nil
		}
		return plainNumber(s)
	}
	return v
}

// plainNumber quita moneda y porcentaje y deja un solo separador decimal '.'.
// El resultado puede seguir sin ser numérico; lo rechaza el decode de decimal.
func plainNumber(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, " ", "")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma < 0:
		return s
	case dot > comma:
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		// 1,234,567
		return strings.ReplaceAll(s, ",", "")
	default:
		// 1.234,56 o 35,50
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	}
}
