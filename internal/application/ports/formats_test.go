package ports_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
)

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		key  string
		mime string
		ok   bool
	}{
		{"nota1.png", ports.MimePNG, true},
		{"2025/10/cupom.JPG", ports.MimeJPEG, true},
		{"scan.jpeg", ports.MimeJPEG, true},
		{"nota2.pdf", ports.MimePDF, true},
		{"35251012345678000195650010000001231123456785-procNFe.xml", ports.MimeXML, true},
		{"planilha.xlsx", "", false},
		{"sem_extensao", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			mime, ok := ports.ContentTypeFor(tc.key)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.mime, mime)
		})
	}
}

func TestIsXML(t *testing.T) {
	assert.True(t, ports.IsXML("application/xml"))
	assert.True(t, ports.IsXML("text/xml; charset=utf-8"))
	assert.False(t, ports.IsXML("application/pdf"))
}

func TestIsErrorLog(t *testing.T) {
	assert.True(t, ports.IsErrorLog("nota2.pdf.erro.json"))
	assert.False(t, ports.IsErrorLog("nota2.pdf"))
}
