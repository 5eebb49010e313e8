// Package nfe modela el registro estructurado que produce la extracción de una
// NF-e/NFC-e y la frontera de validación previa a la persistencia.
//
// Los tags JSON reproducen el sobre {"NFe": {...}} que devuelve el modelo de visión,
// el mismo que se envía al webhook del ERP y que expone el portal.
package nfe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Document sobre raíz de la respuesta de extracción.
type Document struct {
	NFe *Record `json:"NFe"`
}

// Record datos fiscales de una nota. Campos puntero = opcionales; string vacío o
// puntero nil en un campo obligatorio lo detecta Validate.
type Record struct {
	Identification Identification  `json:"identificacao"`
	Items          []Item          `json:"itens"`
	Totals         Totals          `json:"totais"`
	Payment        Payment         `json:"pagamento"`
	Additional     *AdditionalData `json:"dados_adicionais,omitempty"`
}

// Identification emitente y datos de autorización.
type Identification struct {
	EmitterTaxID      string  `json:"CNPJ_Emitente"`
	EmitterName       string  `json:"Nome_Emitente"`
	StateRegistration *string `json:"IE_Emitente"`
	Address           Address `json:"Endereco_Emitente"`
	AccessKey         *string `json:"Chave_Acesso"`
	Protocol          *string `json:"Protocolo_Autorizacao"`
	AuthorizationDate *string `json:"Data_Autorizacao"` // DD/MM/AAAA
	AuthorizationTime *string `json:"Hora_Autorizacao"` // HH:MM:SS
	Number            *string `json:"Numero_NFCe"`
	Series            *string `json:"Serie_NFCe"`
	Consumer          *string `json:"Consumidor"`
}

// Address endereço do emitente.
type Address struct {
	Street       string  `json:"Logradouro"`
	Number       *string `json:"Numero"`
	District     *string `json:"Bairro"`
	Municipality string  `json:"Municipio"`
	State        string  `json:"UF"`
	PostalCode   *string `json:"CEP"`
}

// Item línea de producto tal como la devuelve la extracción.
type Item struct {
	Number      *decimal.Decimal `json:"Numero_Item"`
	ProductCode *string          `json:"Codigo_Produto"`
	Description string           `json:"Descricao"`
	Quantity    *decimal.Decimal `json:"Quantidade"`
	Unit        string           `json:"Unidade"`
	UnitPrice   *decimal.Decimal `json:"Valor_Unitario"`
	Discount    *decimal.Decimal `json:"Desconto_Item"`
	Total       *decimal.Decimal `json:"Valor_Total_Item"`
}

// Totals totales declarados en la nota.
type Totals struct {
	ItemCount  *decimal.Decimal `json:"Qtd_Total_Itens"`
	Gross      *decimal.Decimal `json:"Valor_Total_Produtos"`
	Discounts  *decimal.Decimal `json:"Descontos_Gerais"`
	Surcharges *decimal.Decimal `json:"Acrescimos_Gerais"`
	Payable    *decimal.Decimal `json:"Valor_Total_a_Pagar"`
	Taxes      Taxes            `json:"Informacao_Tributos"`
}

// Taxes información de tributos aproximados; todo opcional.
type Taxes struct {
	Total          *decimal.Decimal `json:"Total_Tributos_Incidentes"`
	Federal        *decimal.Decimal `json:"Tributos_Federais"`
	FederalPercent *decimal.Decimal `json:"Percentual_Federais"`
	State          *decimal.Decimal `json:"Tributos_Estaduais"`
	StatePercent   *decimal.Decimal `json:"Percentual_Estaduais"`
	Source         *string          `json:"Fonte_Tributos"`
	LegalBasis     *string          `json:"Lei_Tributos"`
}

// Payment forma de pago.
type Payment struct {
	Method string           `json:"Forma_Pagamento"`
	Amount *decimal.Decimal `json:"Valor_Pago"`
	Change *decimal.Decimal `json:"Troco"`
	Detail *string          `json:"Meio_Pagamento_Detalhe"`
}

// AdditionalData caixa/operador/vendedor.
type AdditionalData struct {
	Cashier     *string `json:"Caixa"`
	Operator    *string `json:"Operador"`
	Salesperson *string `json:"Vendedor"`
}

// Decode interpreta el JSON de la extracción. Acepta el sobre {"NFe": {...}} o el registro
// sin sobre. Los montos admiten "", "null" y coma decimal (ver relax). Devuelve error si
// el JSON no es válido o no contiene identificación ni ítems.
func Decode(data []byte) (*Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("nfe: respuesta vacía")
	}
	data = relax(data)
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("nfe: JSON inválido: %w", err)
	}
	rec := doc.NFe
	if rec == nil {
		var bare Record
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("nfe: JSON inválido: %w", err)
		}
		rec = &bare
	}
	if rec.Identification.EmitterTaxID == "" && rec.Identification.EmitterName == "" && len(rec.Items) == 0 {
		return nil, errors.New("nfe: la respuesta no contiene el grupo NFe/identificacao")
	}
	return rec, nil
}

// Envelope devuelve el registro dentro del sobre {"NFe": ...}.
func (r *Record) Envelope() Document {
	return Document{NFe: r}
}
