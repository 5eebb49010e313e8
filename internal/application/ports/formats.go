package ports

import (
	"path"
	"strings"
)

// Tipos MIME con los que trabajan los extractores.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimePDF  = "application/pdf"
	MimeXML  = "application/xml"
)

var contentTypes = map[string]string{
	".png":  MimePNG,
	".jpg":  MimeJPEG,
	".jpeg": MimeJPEG,
	".pdf":  MimePDF,
	".xml":  MimeXML,
}

// ContentTypeFor devuelve el tipo MIME según la extensión de la clave.
// ok es false para extensiones que ningún extractor admite.
func ContentTypeFor(key string) (mime string, ok bool) {
	mime, ok = contentTypes[strings.ToLower(path.Ext(key))]
	return mime, ok
}

// IsXML indica si el tipo corresponde a un XML de NF-e.
func IsXML(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt == MimeXML || mt == "text/xml"
}

// IsErrorLog indica si la clave es un log de error y no un documento.
func IsErrorLog(key string) bool {
	return strings.HasSuffix(key, ErrorLogSuffix)
}
