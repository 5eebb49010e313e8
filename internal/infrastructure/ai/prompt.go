package ai

import "strings"

// extractionPrompt instrucciones comunes a todos los proveedores. El modelo lee notas
// brasileñas, por eso el prompt va en portugués; las claves del JSON son las de nfe.Record.
const extractionPrompt = `Você extrai dados de Notas Fiscais Eletrônicas brasileiras (NF-e e NFC-e).

Leia o documento e devolva SOMENTE um objeto JSON, sem markdown e sem texto fora dele, com este formato:
{
  "NFe": {
    "identificacao": {
      "CNPJ_Emitente": "texto",
      "Nome_Emitente": "texto",
      "IE_Emitente": "texto ou null",
      "Endereco_Emitente": {
        "Logradouro": "texto",
        "Numero": "texto ou null",
        "Bairro": "texto ou null",
        "Municipio": "texto",
        "UF": "sigla de 2 letras",
        "CEP": "texto ou null"
      },
      "Chave_Acesso": "44 dígitos ou null",
      "Protocolo_Autorizacao": "texto ou null",
      "Data_Autorizacao": "DD/MM/AAAA ou null",
      "Hora_Autorizacao": "HH:MM:SS ou null",
      "Numero_NFCe": "texto ou null",
      "Serie_NFCe": "texto ou null",
      "Consumidor": "texto ou null"
    },
    "itens": [
      {
        "Numero_Item": 1,
        "Codigo_Produto": "texto ou null",
        "Descricao": "texto",
        "Quantidade": 0.0,
        "Unidade": "texto",
        "Valor_Unitario": 0.0,
        "Desconto_Item": 0.0,
        "Valor_Total_Item": 0.0
      }
    ],
    "totais": {
      "Qtd_Total_Itens": 0,
      "Valor_Total_Produtos": 0.0,
      "Descontos_Gerais": 0.0,
      "Acrescimos_Gerais": 0.0,
      "Valor_Total_a_Pagar": 0.0,
      "Informacao_Tributos": {
        "Total_Tributos_Incidentes": 0.0,
        "Tributos_Federais": 0.0,
        "Percentual_Federais": 0.0,
        "Tributos_Estaduais": 0.0,
        "Percentual_Estaduais": 0.0,
        "Fonte_Tributos": "texto ou null",
        "Lei_Tributos": "texto ou null"
      }
    },
    "pagamento": {
      "Forma_Pagamento": "texto",
      "Valor_Pago": 0.0,
      "Troco": 0.0,
      "Meio_Pagamento_Detalhe": "texto ou null"
    },
    "dados_adicionais": {
      "Caixa": "texto ou null",
      "Operador": "texto ou null",
      "Vendedor": "texto ou null"
    }
  }
}

Regras:
- Use apenas o que estiver legível no documento; campo opcional ausente vai como null.
- Valores monetários como número com ponto decimal (35.50), exatamente como impressos.
- Descontos_Gerais e Acrescimos_Gerais valem 0 quando a nota não os mostra.
- Numere os itens a partir de 1, na ordem em que aparecem.
- Se o documento não for uma nota fiscal ou estiver ilegível, devolva {"erro": "motivo"}.`

const pdfTextHeader = "TEXTO EXTRAÍDO DO PDF:"

// textPrompt prompt para PDFs con capa de texto.
func textPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(extractionPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(pdfTextHeader)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(text))
	return sb.String()
}
