package objectstore_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/infrastructure/objectstore"
)

var buckets = ports.Buckets{Received: "nfe-recebidos", Processed: "nfe-processados", Error: "nfe-erros"}

// ─── memClient: S3 en memoria con inyección de fallos ────────────────────────

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

type memClient struct {
	mu      sync.Mutex
	buckets map[string]map[string]memObject

	failCopy      error
	failRemove    error
	corruptCopies bool
}

func newMemClient(names ...string) *memClient {
	c := &memClient{buckets: map[string]map[string]memObject{}}
	for _, n := range names {
		c.buckets[n] = map[string]memObject{}
	}
	return c
}

func (c *memClient) put(bucket, key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[bucket][key] = memObject{data: data, modified: time.Now()}
}

func (c *memClient) has(bucket, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.buckets[bucket][key]
	return ok
}

func noSuch(code string) error {
	return minio.ErrorResponse{Code: code, StatusCode: 404}
}

func etag(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (c *memClient) BucketExists(_ context.Context, bucket string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.buckets[bucket]
	return ok, nil
}

func (c *memClient) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[bucket] = map[string]memObject{}
	return nil
}

func (c *memClient) ListObjects(_ context.Context, bucket string, _ minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	objs, ok := c.buckets[bucket]
	ch := make(chan minio.ObjectInfo, len(objs)+1)
	if !ok {
		ch <- minio.ObjectInfo{Err: noSuch("NoSuchBucket")}
	}
	for k, o := range objs {
		ch <- minio.ObjectInfo{Key: k, Size: int64(len(o.data)), ETag: etag(o.data), LastModified: o.modified}
	}
	close(ch)
	return ch
}

func (c *memClient) ReadObject(_ context.Context, bucket, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.buckets[bucket][key]
	if !ok {
		return nil, noSuch("NoSuchKey")
	}
	return o.data, nil
}

func (c *memClient) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.buckets[bucket]; !ok {
		return minio.UploadInfo{}, noSuch("NoSuchBucket")
	}
	c.buckets[bucket][key] = memObject{data: data, contentType: opts.ContentType, modified: time.Now()}
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func (c *memClient) CopyObject(_ context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCopy != nil {
		return minio.UploadInfo{}, c.failCopy
	}
	o, ok := c.buckets[src.Bucket][src.Object]
	if !ok {
		return minio.UploadInfo{}, noSuch("NoSuchKey")
	}
	if c.corruptCopies {
		o.data = o.data[:len(o.data)/2]
	}
	c.buckets[dst.Bucket][dst.Object] = o
	return minio.UploadInfo{Bucket: dst.Bucket, Key: dst.Object}, nil
}

func (c *memClient) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.buckets[bucket][key]
	if !ok {
		return minio.ObjectInfo{}, noSuch("NoSuchKey")
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(o.data)), ETag: etag(o.data)}, nil
}

func (c *memClient) RemoveObject(_ context.Context, bucket, key string, _ minio.RemoveObjectOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failRemove != nil {
		return c.failRemove
	}
	delete(c.buckets[bucket], key)
	return nil
}

func newGateway(c *memClient) *objectstore.Gateway {
	return objectstore.NewGateway(c, buckets, zerolog.Nop())
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestEnsureBuckets_Idempotent(t *testing.T) {
	c := newMemClient(buckets.Received)
	g := newGateway(c)
	ctx := context.Background()

	require.NoError(t, g.EnsureBuckets(ctx))
	c.put(buckets.Processed, "ya.png", []byte("x"))
	require.NoError(t, g.EnsureBuckets(ctx))

	for _, b := range buckets.All() {
		ok, _ := c.BucketExists(ctx, b)
		assert.True(t, ok, b)
	}
	assert.True(t, c.has(buckets.Processed, "ya.png"), "no debe recrear buckets existentes")
}

func TestList_SortedAndMissingBucket(t *testing.T) {
	c := newMemClient(buckets.All()...)
	c.put(buckets.Received, "b.pdf", []byte("pdf"))
	c.put(buckets.Received, "a.png", []byte("png"))
	g := newGateway(c)

	list, err := g.List(context.Background(), buckets.Received)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.png", list[0].Key)
	assert.Equal(t, "b.pdf", list[1].Key)
	assert.Equal(t, int64(3), list[0].Size)

	list, err = g.List(context.Background(), "no-existe")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDownload_Vanished(t *testing.T) {
	g := newGateway(newMemClient(buckets.All()...))
	_, err := g.Download(context.Background(), buckets.Received, "nota.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMove_Success(t *testing.T) {
	c := newMemClient(buckets.All()...)
	c.put(buckets.Received, "nota1.png", []byte("imagen"))
	g := newGateway(c)

	dest, err := g.Move(context.Background(), buckets.Received, buckets.Processed, "nota1.png")
	require.NoError(t, err)
	assert.Equal(t, "nota1.png", dest)
	assert.False(t, c.has(buckets.Received, "nota1.png"))
	assert.True(t, c.has(buckets.Processed, "nota1.png"))
}

func TestMove_KeyTakenByOtherContent(t *testing.T) {
	c := newMemClient(buckets.All()...)
	g := newGateway(c)
	ctx := context.Background()

	c.put(buckets.Received, "image.jpg", []byte("primera nota"))
	first, err := g.Move(ctx, buckets.Received, buckets.Processed, "image.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image.jpg", first)

	second := []byte("segunda nota con otro contenido")
	c.put(buckets.Received, "image.jpg", second)
	dest, err := g.Move(ctx, buckets.Received, buckets.Processed, "image.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, "image.jpg", dest)
	assert.Equal(t, "image_"+etag(second)[:8]+".jpg", dest)
	assert.False(t, c.has(buckets.Received, "image.jpg"))

	kept, err := c.ReadObject(ctx, buckets.Processed, "image.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("primera nota"), kept, "el objeto previo no se sobrescribe")
	moved, err := c.ReadObject(ctx, buckets.Processed, dest)
	require.NoError(t, err)
	assert.Equal(t, second, moved)

	list, err := g.List(ctx, buckets.Processed)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMove_FallsBackToTimestampKey(t *testing.T) {
	c := newMemClient(buckets.All()...)
	g := newGateway(c)
	data := []byte("nota nueva")
	c.put(buckets.Received, "nota.pdf", data)
	c.put(buckets.Processed, "nota.pdf", []byte("otra"))
	c.put(buckets.Processed, "nota_"+etag(data)[:8]+".pdf", []byte("otra más"))

	dest, err := g.Move(context.Background(), buckets.Received, buckets.Processed, "nota.pdf")
	require.NoError(t, err)
	assert.Regexp(t, `^nota_\d{8}T\d{6}\.\d{9}\.pdf$`, dest)
	assert.True(t, c.has(buckets.Processed, dest))
	assert.False(t, c.has(buckets.Received, "nota.pdf"))
}

func TestMove_RetryAfterFailedDelete(t *testing.T) {
	c := newMemClient(buckets.All()...)
	g := newGateway(c)
	ctx := context.Background()
	c.put(buckets.Received, "nota.pdf", []byte("contenido"))

	c.failRemove = errors.New("access denied")
	dest, err := g.Move(ctx, buckets.Received, buckets.Processed, "nota.pdf")
	require.Error(t, err)
	assert.Equal(t, "nota.pdf", dest)

	c.failRemove = nil
	c.failCopy = errors.New("no debería copiar de nuevo")
	dest, err = g.Move(ctx, buckets.Received, buckets.Processed, "nota.pdf")
	require.NoError(t, err, "la copia idéntica en destino se reutiliza")
	assert.Equal(t, "nota.pdf", dest)
	assert.False(t, c.has(buckets.Received, "nota.pdf"))

	list, err := g.List(ctx, buckets.Processed)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMove_FailurePhases(t *testing.T) {
	cases := []struct {
		name       string
		setup      func(c *memClient)
		phase      domain.RelocationPhase
		inSource   bool
		inDest     bool
		duplicated bool
	}{
		{"copy", func(c *memClient) { c.failCopy = errors.New("connection reset") }, domain.PhaseCopy, true, false, false},
		{"verify", func(c *memClient) { c.corruptCopies = true }, domain.PhaseVerify, true, true, false},
		{"delete", func(c *memClient) { c.failRemove = errors.New("access denied") }, domain.PhaseDelete, true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newMemClient(buckets.All()...)
			c.put(buckets.Received, "nota.pdf", []byte("contenido del pdf"))
			tc.setup(c)

			_, err := newGateway(c).Move(context.Background(), buckets.Received, buckets.Error, "nota.pdf")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrStorage)

			var relErr *domain.RelocationError
			require.ErrorAs(t, err, &relErr)
			assert.Equal(t, tc.phase, relErr.Phase)
			assert.Equal(t, tc.duplicated, relErr.Duplicated())
			assert.Equal(t, tc.inSource, c.has(buckets.Received, "nota.pdf"), "el origen nunca se borra sin copia confirmada")
			assert.Equal(t, tc.inDest, c.has(buckets.Error, "nota.pdf"))
		})
	}
}

func TestMove_SourceVanished(t *testing.T) {
	g := newGateway(newMemClient(buckets.All()...))
	_, err := g.Move(context.Background(), buckets.Received, buckets.Processed, "nada.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestWriteErrorLog(t *testing.T) {
	c := newMemClient(buckets.All()...)
	g := newGateway(c)
	at := time.Date(2025, 10, 23, 18, 30, 0, 0, time.UTC)

	err := g.WriteErrorLog(context.Background(), "nota2.pdf", ports.ErrorLog{
		OriginalFile: "nota2.pdf", ProcessedAt: at, Stage: "EXTRACTING", Cause: "pdf corrupto",
	})
	require.NoError(t, err)

	raw, err := c.ReadObject(context.Background(), buckets.Error, "nota2.pdf.erro.json")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "nota2.pdf", got["arquivo_original"])
	assert.Equal(t, "EXTRACTING", got["etapa"])
	assert.Equal(t, "pdf corrupto", got["erro"])
	assert.Equal(t, "2025-10-23T18:30:00Z", got["data_processamento"])
}
