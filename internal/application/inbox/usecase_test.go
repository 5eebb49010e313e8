package inbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lentefiscal/internal/application/inbox"
	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
)

var buckets = ports.Buckets{Received: "nfe-recebidos", Processed: "nfe-processados", Error: "nfe-erros"}

type object struct {
	data     []byte
	mime     string
	modified time.Time
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]map[string]object
	moveErr map[string]error
	clock   time.Time
}

func newMemStore() *memStore {
	s := &memStore{objects: map[string]map[string]object{}, moveErr: map[string]error{},
		clock: time.Date(2025, 10, 23, 12, 0, 0, 0, time.UTC)}
	for _, b := range buckets.All() {
		s.objects[b] = map[string]object{}
	}
	return s
}

func (s *memStore) put(bucket, key, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Minute)
	s.objects[bucket][key] = object{data: []byte(content), modified: s.clock}
}

func (s *memStore) has(bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket][key]
	return ok
}

func (s *memStore) Buckets() ports.Buckets              { return buckets }
func (s *memStore) EnsureBuckets(context.Context) error { return nil }

func (s *memStore) List(_ context.Context, bucket string) ([]ports.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.ObjectInfo
	for k, o := range s.objects[bucket] {
		out = append(out, ports.ObjectInfo{Bucket: bucket, Key: k, Size: int64(len(o.data)), LastModified: o.modified})
	}
	return out, nil
}

func (s *memStore) Download(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, bucket, key)
	}
	return o.data, nil
}

func (s *memStore) Upload(_ context.Context, bucket, key string, data []byte, mime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket][key] = object{data: data, mime: mime, modified: s.clock}
	return nil
}

func (s *memStore) Remove(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects[bucket], key)
	return nil
}

func (s *memStore) Move(_ context.Context, src, dst, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.moveErr[key]; err != nil {
		return "", &domain.RelocationError{Key: key, Source: src, Dest: dst, Phase: domain.PhaseCopy, Err: err}
	}
	o, ok := s.objects[src][key]
	if !ok {
		return "", &domain.RelocationError{Key: key, Source: src, Dest: dst, Phase: domain.PhaseCopy, Err: domain.ErrNotFound}
	}
	s.objects[dst][key] = o
	delete(s.objects[src], key)
	return key, nil
}

func (s *memStore) WriteErrorLog(ctx context.Context, key string, entry ports.ErrorLog) error {
	body, _ := json.Marshal(entry)
	return s.Upload(ctx, buckets.Error, key+ports.ErrorLogSuffix, body, "application/json")
}

func newUseCase(store *memStore) *inbox.UseCase {
	return inbox.NewUseCase(store, 1024, zerolog.Nop())
}

// ─── Resolve / List ───────────────────────────────────────────────────────────

func TestResolve(t *testing.T) {
	uc := newUseCase(newMemStore())
	for name, want := range map[string]string{
		"received":        "nfe-recebidos",
		"Processed":       "nfe-processados",
		"error":           "nfe-erros",
		"nfe-processados": "nfe-processados",
	} {
		got, err := uc.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := uc.Resolve("outro")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestList_HidesErrorLogsAndFlagsThem(t *testing.T) {
	store := newMemStore()
	store.put(buckets.Error, "nota2.pdf", "pdf")
	store.put(buckets.Error, "nota2.pdf"+ports.ErrorLogSuffix, "{}")
	store.put(buckets.Error, "nota3.png", "png")
	uc := newUseCase(store)

	entries, err := uc.List(context.Background(), "error")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "nota3.png", entries[0].Key, "el más reciente primero")
	assert.False(t, entries[0].HasErrorLog)
	assert.Equal(t, "nota2.pdf", entries[1].Key)
	assert.True(t, entries[1].HasErrorLog)
}

// ─── Upload ───────────────────────────────────────────────────────────────────

func TestUpload(t *testing.T) {
	store := newMemStore()
	uc := newUseCase(store)

	info, err := uc.Upload(context.Background(), `C:\scans\Nota1.PNG`, []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Nota1.PNG", info.Key)
	assert.Equal(t, ports.MimePNG, info.ContentType)
	assert.True(t, store.has(buckets.Received, "Nota1.PNG"))
	assert.Equal(t, ports.MimePNG, store.objects[buckets.Received]["Nota1.PNG"].mime)
}

func TestUpload_Rejects(t *testing.T) {
	big := make([]byte, 2048)
	cases := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"extensión", "planilha.xlsx", []byte("x")},
		{"sin nombre", "  ", []byte("x")},
		{"vacío", "nota.pdf", nil},
		{"demasiado grande", "nota.pdf", big},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			_, err := newUseCase(store).Upload(context.Background(), tc.filename, tc.data)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, store.objects[buckets.Received])
		})
	}
}

// ─── Download / Delete / ErrorLog ─────────────────────────────────────────────

func TestDownload(t *testing.T) {
	store := newMemStore()
	store.put(buckets.Processed, "nota1.jpeg", "jpeg")
	uc := newUseCase(store)

	data, mime, err := uc.Download(context.Background(), "processed", "nota1.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, ports.MimeJPEG, mime)

	_, _, err = uc.Download(context.Background(), "processed", "nada.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RemovesErrorLogToo(t *testing.T) {
	store := newMemStore()
	store.put(buckets.Error, "nota2.pdf", "pdf")
	store.put(buckets.Error, "nota2.pdf"+ports.ErrorLogSuffix, "{}")
	uc := newUseCase(store)

	require.NoError(t, uc.Delete(context.Background(), "error", "nota2.pdf"))
	assert.Empty(t, store.objects[buckets.Error])
}

func TestErrorLog(t *testing.T) {
	store := newMemStore()
	at := time.Date(2025, 10, 23, 21, 0, 0, 0, time.UTC)
	require.NoError(t, store.WriteErrorLog(context.Background(), "nota2.pdf", ports.ErrorLog{
		OriginalFile: "nota2.pdf", ProcessedAt: at, Stage: "EXTRACTING", Cause: "pdf corrompido",
	}))
	uc := newUseCase(store)

	entry, err := uc.ErrorLog(context.Background(), "nota2.pdf")
	require.NoError(t, err)
	assert.Equal(t, "EXTRACTING", entry.Stage)
	assert.True(t, entry.ProcessedAt.Equal(at))

	_, err = uc.ErrorLog(context.Background(), "sem_log.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ─── Reprocess ────────────────────────────────────────────────────────────────

func TestReprocess_SelectedKeys(t *testing.T) {
	store := newMemStore()
	store.put(buckets.Error, "nota2.pdf", "pdf")
	store.put(buckets.Error, "nota2.pdf"+ports.ErrorLogSuffix, "{}")
	store.put(buckets.Error, "nota3.png", "png")
	uc := newUseCase(store)

	results, err := uc.Reprocess(context.Background(), "nota2.pdf")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.True(t, store.has(buckets.Received, "nota2.pdf"))
	assert.False(t, store.has(buckets.Error, "nota2.pdf"))
	assert.False(t, store.has(buckets.Error, "nota2.pdf"+ports.ErrorLogSuffix))
	assert.True(t, store.has(buckets.Error, "nota3.png"), "las demás claves no se tocan")
}

func TestReprocess_AllAndPartialFailure(t *testing.T) {
	store := newMemStore()
	store.put(buckets.Error, "a.png", "a")
	store.put(buckets.Error, "b.png", "b")
	store.put(buckets.Error, "b.png"+ports.ErrorLogSuffix, "{}")
	store.moveErr["a.png"] = errors.New("timeout")
	uc := newUseCase(store)

	results, err := uc.Reprocess(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	require.Len(t, results, 2)

	byKey := map[string]error{}
	for _, r := range results {
		byKey[r.Key] = r.Err
	}
	assert.Error(t, byKey["a.png"])
	assert.NoError(t, byKey["b.png"])
	assert.True(t, store.has(buckets.Error, "a.png"))
	assert.True(t, store.has(buckets.Received, "b.png"))
}

func TestReprocess_RejectsErrorLogKey(t *testing.T) {
	uc := newUseCase(newMemStore())
	_, err := uc.Reprocess(context.Background(), "nota2.pdf"+ports.ErrorLogSuffix)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
