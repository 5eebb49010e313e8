// Package objectstore implementa el acceso a los buckets received/processed/error
// sobre un almacenamiento compatible con S3 (MinIO).
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
)

var _ ports.ObjectStore = (*Gateway)(nil)

// Gateway implementa ports.ObjectStore.
type Gateway struct {
	client  Client
	buckets ports.Buckets
	log     zerolog.Logger
}

// NewGateway construye el gateway.
func NewGateway(client Client, buckets ports.Buckets, log zerolog.Logger) *Gateway {
	return &Gateway{client: client, buckets: buckets, log: log}
}

// Buckets devuelve los nombres configurados.
func (g *Gateway) Buckets() ports.Buckets { return g.buckets }

// EnsureBuckets crea los buckets que falten. Idempotente.
func (g *Gateway) EnsureBuckets(ctx context.Context) error {
	for _, b := range g.buckets.All() {
		exists, err := g.client.BucketExists(ctx, b)
		if err != nil {
			return storageErr("comprobar bucket "+b, err)
		}
		if exists {
			continue
		}
		if err := g.client.MakeBucket(ctx, b, minio.MakeBucketOptions{}); err != nil {
			// Otro proceso pudo crearlo entre BucketExists y MakeBucket.
			if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				continue
			}
			return storageErr("crear bucket "+b, err)
		}
		g.log.Info().Str("bucket", b).Msg("bucket creado")
	}
	return nil
}

// List devuelve los objetos del bucket ordenados por clave. Un bucket inexistente se lista vacío.
func (g *Gateway) List(ctx context.Context, bucket string) ([]ports.ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	list := []ports.ObjectInfo{}
	for obj := range g.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			if minio.ToErrorResponse(obj.Err).Code == "NoSuchBucket" {
				return []ports.ObjectInfo{}, nil
			}
			return nil, storageErr("listar "+bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		list = append(list, ports.ObjectInfo{
			Bucket:       bucket,
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

// Download devuelve el contenido del objeto. Si ya no existe envuelve domain.ErrNotFound.
func (g *Gateway) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := g.client.ReadObject(ctx, bucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, bucket, key)
		}
		return nil, storageErr("descargar "+bucket+"/"+key, err)
	}
	return data, nil
}

// Upload escribe el objeto (sobrescribe si existe).
func (g *Gateway) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := g.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return storageErr("subir "+bucket+"/"+key, err)
	}
	return nil
}

// Remove elimina el objeto. Eliminar uno inexistente no es error (semántica S3).
func (g *Gateway) Remove(ctx context.Context, bucket, key string) error {
	if err := g.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return storageErr("eliminar "+bucket+"/"+key, err)
	}
	return nil
}

// Move reubica key de srcBucket a dstBucket: copia, verifica el destino (tamaño y ETag
// contra el origen) y recién entonces borra el origen. Devuelve la clave final en dstBucket.
//
// Si la clave ya está ocupada en el destino por otro contenido se usa <base>_<etag><ext>
// (o un sufijo de tiempo); nunca se sobrescribe un objeto distinto. Si el destino ya tiene
// una copia idéntica (reintento tras un fallo al borrar) solo se borra el origen.
func (g *Gateway) Move(ctx context.Context, srcBucket, dstBucket, key string) (string, error) {
	relErr := func(phase domain.RelocationPhase, err error) error {
		return &domain.RelocationError{Key: key, Source: srcBucket, Dest: dstBucket, Phase: phase, Err: err}
	}

	src, err := g.client.StatObject(ctx, srcBucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return "", relErr(domain.PhaseCopy, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, srcBucket, key))
		}
		return "", relErr(domain.PhaseCopy, err)
	}

	dstKey, copied, err := g.freeKey(ctx, dstBucket, key, src)
	if err != nil {
		return "", relErr(domain.PhaseCopy, err)
	}

	if !copied {
		_, err = g.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: dstBucket, Object: dstKey},
			minio.CopySrcOptions{Bucket: srcBucket, Object: key},
		)
		if err != nil {
			return "", relErr(domain.PhaseCopy, err)
		}

		dst, err := g.client.StatObject(ctx, dstBucket, dstKey, minio.StatObjectOptions{})
		if err != nil {
			return "", relErr(domain.PhaseVerify, err)
		}
		if err := sameObject(src, dst); err != nil {
			return "", relErr(domain.PhaseVerify, err)
		}
	}

	if err := g.client.RemoveObject(ctx, srcBucket, key, minio.RemoveObjectOptions{}); err != nil {
		return dstKey, relErr(domain.PhaseDelete, err)
	}
	g.log.Debug().Str("key", key).Str("dest_key", dstKey).Str("from", srcBucket).Str("to", dstBucket).
		Bool("reused", copied).Msg("objeto movido")
	return dstKey, nil
}

// freeKey elige la clave de destino para src. El bool indica que esa clave ya guarda
// una copia idéntica de src.
func (g *Gateway) freeKey(ctx context.Context, bucket, key string, src minio.ObjectInfo) (string, bool, error) {
	for _, candidate := range destCandidates(key, src.ETag, time.Now()) {
		dst, err := g.client.StatObject(ctx, bucket, candidate, minio.StatObjectOptions{})
		switch {
		case err != nil && isNotFound(err):
			return candidate, false, nil
		case err != nil:
			return "", false, err
		case identical(src, dst):
			return candidate, true, nil
		}
		g.log.Warn().Str("bucket", bucket).Str("key", candidate).Msg("clave ocupada por otro contenido en el destino")
	}
	return "", false, fmt.Errorf("%w: sin clave libre para %s en %s", domain.ErrDuplicate, key, bucket)
}

// destCandidates clave original, luego con el ETag del origen y por último con un sufijo de tiempo.
// El sufijo por ETag hace que un reintento del mismo contenido caiga en la misma clave.
func destCandidates(key, etag string, now time.Time) []string {
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	out := []string{key}
	if tag := strings.Trim(etag, `"`); tag != "" {
		if len(tag) > 8 {
			tag = tag[:8]
		}
		out = append(out, base+"_"+strings.ReplaceAll(tag, "-", "")+ext)
	}
	return append(out, base+"_"+now.UTC().Format("20060102T150405.000000000")+ext)
}

// identical exige tamaño y ETag iguales; sin ETag comparable no se asume igualdad.
func identical(src, dst minio.ObjectInfo) bool {
	srcTag, dstTag := strings.Trim(src.ETag, `"`), strings.Trim(dst.ETag, `"`)
	return src.Size == dst.Size && srcTag != "" && srcTag == dstTag
}

// WriteErrorLog escribe <key>.erro.json en el bucket de error.
func (g *Gateway) WriteErrorLog(ctx context.Context, key string, entry ports.ErrorLog) error {
	body, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar log de error: %w", err)
	}
	return g.Upload(ctx, g.buckets.Error, key+ports.ErrorLogSuffix, body, "application/json")
}

// sameObject compara tamaño y, si ninguno es multipart, ETag.
func sameObject(src, dst minio.ObjectInfo) error {
	if src.Size != dst.Size {
		return fmt.Errorf("tamaño en destino %d distinto del origen %d", dst.Size, src.Size)
	}
	srcTag, dstTag := strings.Trim(src.ETag, `"`), strings.Trim(dst.ETag, `"`)
	if srcTag == "" || dstTag == "" || strings.Contains(srcTag, "-") || strings.Contains(dstTag, "-") {
		return nil
	}
	if srcTag != dstTag {
		return fmt.Errorf("ETag en destino %s distinto del origen %s", dstTag, srcTag)
	}
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, domain.ErrNotFound) {
		return true
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
