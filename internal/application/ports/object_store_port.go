package ports

import (
	"context"
	"time"
)

// Buckets nombres de los tres buckets lógicos.
type Buckets struct {
	Received  string
	Processed string
	Error     string
}

// All devuelve los tres nombres en orden received, processed, error.
func (b Buckets) All() []string {
	return []string{b.Received, b.Processed, b.Error}
}

// Has indica si name es uno de los buckets lógicos.
func (b Buckets) Has(name string) bool {
	return name != "" && (name == b.Received || name == b.Processed || name == b.Error)
}

// ObjectInfo metadatos de un objeto listado.
type ObjectInfo struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
}

// ErrorLog contenido del archivo <key>.erro.json que acompaña a un objeto en el bucket de error.
type ErrorLog struct {
	OriginalFile string    `json:"arquivo_original"`
	StoredAs     string    `json:"arquivo_armazenado,omitempty"` // clave en el bucket de error si difiere
	ProcessedAt  time.Time `json:"data_processamento"`
	Stage        string    `json:"etapa"`
	Cause        string    `json:"erro"`
}

// ErrorLogSuffix sufijo de los archivos de log de error.
const ErrorLogSuffix = ".erro.json"

// ObjectStore define el puerto hacia el almacenamiento de objetos (S3/MinIO).
//
// Move nunca borra el origen antes de confirmar la copia ni sobrescribe otro contenido
// en el destino: devuelve la clave final, que puede diferir de key. Sus fallos son
// *domain.RelocationError con la fase en la que quedó. Download envuelve
// domain.ErrNotFound si el objeto desapareció entre el listado y la descarga.
type ObjectStore interface {
	Buckets() Buckets
	EnsureBuckets(ctx context.Context) error
	List(ctx context.Context, bucket string) ([]ObjectInfo, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
	Move(ctx context.Context, srcBucket, dstBucket, key string) (string, error)
	WriteErrorLog(ctx context.Context, key string, entry ErrorLog) error
}
