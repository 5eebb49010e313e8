// Package inbox contiene las operaciones manuales sobre los buckets: listar, subir,
// descargar, eliminar y devolver a recibidos los archivos que fallaron.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
)

// Nombres lógicos de bucket que acepta el portal.
const (
	Received  = "received"
	Processed = "processed"
	Error     = "error"
)

// Entry objeto listado. HasErrorLog solo aplica al bucket de error.
type Entry struct {
	ports.ObjectInfo
	HasErrorLog bool `json:"has_error_log"`
}

// ReprocessResult resultado por clave de Reprocess.
type ReprocessResult struct {
	Key string
	Err error
}

// UseCase operaciones del portal sobre el almacenamiento de objetos.
type UseCase struct {
	store     ports.ObjectStore
	maxUpload int64
	log       zerolog.Logger
}

// NewUseCase construye el caso de uso. maxUpload en bytes; 0 sin límite.
func NewUseCase(store ports.ObjectStore, maxUpload int64, log zerolog.Logger) *UseCase {
	return &UseCase{store: store, maxUpload: maxUpload, log: log}
}

// Resolve traduce el nombre lógico (received, processed, error) o el nombre propio al bucket real.
func (uc *UseCase) Resolve(name string) (string, error) {
	b := uc.store.Buckets()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Received:
		return b.Received, nil
	case Processed:
		return b.Processed, nil
	case Error:
		return b.Error, nil
	}
	if b.Has(name) {
		return name, nil
	}
	return "", fmt.Errorf("%w: bucket %q desconocido", domain.ErrInvalidInput, name)
}

// List devuelve los documentos del bucket, sin los logs de error, ordenados del más reciente al más antiguo.
func (uc *UseCase) List(ctx context.Context, bucket string) ([]Entry, error) {
	target, err := uc.Resolve(bucket)
	if err != nil {
		return nil, err
	}
	objects, err := uc.store.List(ctx, target)
	if err != nil {
		return nil, err
	}
	logs := map[string]bool{}
	for _, o := range objects {
		if ports.IsErrorLog(o.Key) {
			logs[strings.TrimSuffix(o.Key, ports.ErrorLogSuffix)] = true
		}
	}
	out := make([]Entry, 0, len(objects))
	for _, o := range objects {
		if ports.IsErrorLog(o.Key) {
			continue
		}
		out = append(out, Entry{ObjectInfo: o, HasErrorLog: logs[o.Key]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

// Upload deja un archivo en recibidos para el próximo ciclo. Solo acepta las extensiones
// que algún extractor sabe leer; la clave es el nombre base del archivo.
func (uc *UseCase) Upload(ctx context.Context, filename string, data []byte) (ports.ObjectInfo, error) {
	key := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if key == "." || key == "/" || key == "" {
		return ports.ObjectInfo{}, fmt.Errorf("%w: nombre de archivo vacío", domain.ErrInvalidInput)
	}
	mime, ok := ports.ContentTypeFor(key)
	if !ok {
		return ports.ObjectInfo{}, fmt.Errorf("%w: extensión %q no admitida (png, jpg, jpeg, pdf, xml)",
			domain.ErrInvalidInput, path.Ext(key))
	}
	if ports.IsErrorLog(key) {
		return ports.ObjectInfo{}, fmt.Errorf("%w: %q es un nombre reservado", domain.ErrInvalidInput, key)
	}
	if len(data) == 0 {
		return ports.ObjectInfo{}, fmt.Errorf("%w: archivo vacío", domain.ErrInvalidInput)
	}
	if uc.maxUpload > 0 && int64(len(data)) > uc.maxUpload {
		return ports.ObjectInfo{}, fmt.Errorf("%w: el archivo supera %d bytes", domain.ErrInvalidInput, uc.maxUpload)
	}

	bucket := uc.store.Buckets().Received
	if err := uc.store.Upload(ctx, bucket, key, data, mime); err != nil {
		return ports.ObjectInfo{}, err
	}
	uc.log.Info().Str("bucket", bucket).Str("key", key).Int("size", len(data)).Msg("archivo subido desde el portal")
	return ports.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(data)), ContentType: mime}, nil
}

// Download devuelve los bytes del objeto y su tipo según la extensión.
func (uc *UseCase) Download(ctx context.Context, bucket, key string) ([]byte, string, error) {
	target, err := uc.Resolve(bucket)
	if err != nil {
		return nil, "", err
	}
	data, err := uc.store.Download(ctx, target, key)
	if err != nil {
		return nil, "", err
	}
	mime, ok := ports.ContentTypeFor(key)
	if !ok {
		mime = "application/octet-stream"
		if ports.IsErrorLog(key) {
			mime = "application/json"
		}
	}
	return data, mime, nil
}

// Delete elimina el objeto; en el bucket de error también su log.
func (uc *UseCase) Delete(ctx context.Context, bucket, key string) error {
	target, err := uc.Resolve(bucket)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: clave vacía", domain.ErrInvalidInput)
	}
	if err := uc.store.Remove(ctx, target, key); err != nil {
		return err
	}
	if target == uc.store.Buckets().Error && !ports.IsErrorLog(key) {
		if err := uc.store.Remove(ctx, target, key+ports.ErrorLogSuffix); err != nil {
			uc.log.Warn().Err(err).Str("key", key).Msg("no se pudo eliminar el log de error")
		}
	}
	uc.log.Info().Str("bucket", target).Str("key", key).Msg("archivo eliminado desde el portal")
	return nil
}

// ErrorLog lee el log de error de key en el bucket de error.
func (uc *UseCase) ErrorLog(ctx context.Context, key string) (*ports.ErrorLog, error) {
	data, err := uc.store.Download(ctx, uc.store.Buckets().Error, key+ports.ErrorLogSuffix)
	if err != nil {
		return nil, err
	}
	var entry ports.ErrorLog
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("log de error de %s ilegible: %w", key, err)
	}
	return &entry, nil
}

// Reprocess devuelve archivos del bucket de error a recibidos y borra sus logs. Sin claves,
// toma todos los documentos del bucket de error. Un fallo en una clave no detiene las demás.
func (uc *UseCase) Reprocess(ctx context.Context, keys ...string) ([]ReprocessResult, error) {
	b := uc.store.Buckets()
	if len(keys) == 0 {
		entries, err := uc.List(ctx, Error)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
	}

	results := make([]ReprocessResult, 0, len(keys))
	var errs []error
	for _, key := range keys {
		res := ReprocessResult{Key: key}
		switch {
		case key == "" || ports.IsErrorLog(key):
			res.Err = fmt.Errorf("%w: %q no es un documento", domain.ErrInvalidInput, key)
		default:
			_, res.Err = uc.store.Move(ctx, b.Error, b.Received, key)
		}
		if res.Err != nil {
			errs = append(errs, res.Err)
			uc.log.Error().Err(res.Err).Str("key", key).Msg("no se pudo devolver a recibidos")
			results = append(results, res)
			continue
		}
		if err := uc.store.Remove(ctx, b.Error, key+ports.ErrorLogSuffix); err != nil {
			uc.log.Warn().Err(err).Str("key", key).Msg("no se pudo eliminar el log de error")
		}
		uc.log.Info().Str("key", key).Msg("archivo devuelto a recibidos")
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
