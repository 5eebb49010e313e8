package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

var testBuckets = ports.Buckets{Received: "nfe-recebidos", Processed: "nfe-processados", Error: "nfe-erros"}

// ─── memStore ─────────────────────────────────────────────────────────────────

// memStore ports.ObjectStore en memoria con fallos de reubicación inyectables.
type memStore struct {
	mu      sync.Mutex
	objects map[string]map[string][]byte
	logs    map[string]ports.ErrorLog
	// moveFaults clave → fase en la que falla el próximo Move (un solo uso).
	moveFaults map[string]domain.RelocationPhase
	ghosts     []string
	listErr    error
}

func newMemStore() *memStore {
	s := &memStore{
		objects:    map[string]map[string][]byte{},
		logs:       map[string]ports.ErrorLog{},
		moveFaults: map[string]domain.RelocationPhase{},
	}
	for _, b := range testBuckets.All() {
		s.objects[b] = map[string][]byte{}
	}
	return s
}

func (s *memStore) put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket][key] = data
}

func (s *memStore) has(bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket][key]
	return ok
}

// where devuelve los buckets en los que está key.
func (s *memStore) where(key string) []string {
	var out []string
	for _, b := range testBuckets.All() {
		if s.has(b, key) {
			out = append(out, b)
		}
	}
	return out
}

func (s *memStore) Buckets() ports.Buckets { return testBuckets }

func (s *memStore) EnsureBuckets(context.Context) error { return nil }

func (s *memStore) List(_ context.Context, bucket string) ([]ports.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []ports.ObjectInfo
	for k, v := range s.objects[bucket] {
		out = append(out, ports.ObjectInfo{Bucket: bucket, Key: k, Size: int64(len(v))})
	}
	if bucket == testBuckets.Received {
		for _, g := range s.ghosts {
			out = append(out, ports.ObjectInfo{Bucket: bucket, Key: g})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memStore) Download(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, bucket, key)
	}
	return data, nil
}

func (s *memStore) Upload(_ context.Context, bucket, key string, data []byte, _ string) error {
	s.put(bucket, key, data)
	return nil
}

func (s *memStore) Remove(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects[bucket], key)
	return nil
}

// Move reutiliza el destino si ya tiene los mismos bytes; si tiene otros, elige base_N.ext.
func (s *memStore) Move(_ context.Context, src, dst, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	relErr := func(phase domain.RelocationPhase) error {
		return &domain.RelocationError{Key: key, Source: src, Dest: dst, Phase: phase, Err: errors.New("fallo inyectado")}
	}
	data, ok := s.objects[src][key]
	if !ok {
		return "", &domain.RelocationError{Key: key, Source: src, Dest: dst, Phase: domain.PhaseCopy, Err: domain.ErrNotFound}
	}
	phase, faulty := s.moveFaults[key]
	if faulty {
		delete(s.moveFaults, key)
	}
	if faulty && phase == domain.PhaseCopy {
		return "", relErr(phase)
	}
	dstKey := key
	ext := path.Ext(key)
	for n := 2; ; n++ {
		existing, taken := s.objects[dst][dstKey]
		if !taken || string(existing) == string(data) {
			break
		}
		dstKey = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(key, ext), n, ext)
	}
	s.objects[dst][dstKey] = data
	if faulty {
		return dstKey, relErr(phase)
	}
	delete(s.objects[src], key)
	return dstKey, nil
}

func (s *memStore) WriteErrorLog(ctx context.Context, key string, entry ports.ErrorLog) error {
	s.mu.Lock()
	s.logs[key] = entry
	s.mu.Unlock()
	return s.Upload(ctx, testBuckets.Error, key+ports.ErrorLogSuffix, []byte(entry.Cause), "application/json")
}

// ─── extractor ────────────────────────────────────────────────────────────────

// scriptedExtractor responde según el contenido del archivo.
type scriptedExtractor struct {
	mu      sync.Mutex
	results map[string]func(ctx context.Context) (*nfe.Record, error)
	calls   []string
}

func (e *scriptedExtractor) on(content string, fn func(ctx context.Context) (*nfe.Record, error)) {
	if e.results == nil {
		e.results = map[string]func(ctx context.Context) (*nfe.Record, error){}
	}
	e.results[content] = fn
}

func (e *scriptedExtractor) Extract(ctx context.Context, data []byte, mime string) (*nfe.Record, error) {
	e.mu.Lock()
	e.calls = append(e.calls, mime)
	fn, ok := e.results[string(data)]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: contenido inesperado", domain.ErrExtraction)
	}
	return fn(ctx)
}

func returns(rec *nfe.Record) func(context.Context) (*nfe.Record, error) {
	return func(context.Context) (*nfe.Record, error) { return rec, nil }
}

func fails(err error) func(context.Context) (*nfe.Record, error) {
	return func(context.Context) (*nfe.Record, error) { return nil, err }
}

// blocks simula un servicio colgado: solo vuelve cuando vence el contexto.
func blocks() func(context.Context) (*nfe.Record, error) {
	return func(ctx context.Context) (*nfe.Record, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: timeout o cancelación: %w", domain.ErrExtraction, ctx.Err())
	}
}

// ─── persister ────────────────────────────────────────────────────────────────

// memPersister deduplica por chave como el repositorio real.
type memPersister struct {
	mu      sync.Mutex
	byKey   map[string]string
	stored  []*nfe.Record
	sources []string
	err     error
}

func (p *memPersister) Persist(_ context.Context, rec *nfe.Record, opts ...fiscal.PersistOption) (fiscal.PersistResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return fiscal.PersistResult{}, p.err
	}
	agg, err := rec.Aggregate()
	if err != nil {
		return fiscal.PersistResult{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	for _, opt := range opts {
		opt(&agg.Invoice)
	}
	if p.byKey == nil {
		p.byKey = map[string]string{}
	}
	if k := rec.Identification.AccessKey; k != nil {
		if id, ok := p.byKey[*k]; ok {
			return fiscal.PersistResult{InvoiceID: id}, nil
		}
	}
	id := fmt.Sprintf("inv-%d", len(p.stored)+1)
	if k := rec.Identification.AccessKey; k != nil {
		p.byKey[*k] = id
	}
	p.stored = append(p.stored, rec)
	if agg.Invoice.SourceObject != nil {
		p.sources = append(p.sources, *agg.Invoice.SourceObject)
	}
	return fiscal.PersistResult{InvoiceID: id, Created: true}, nil
}

func (p *memPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stored)
}

// ─── notifier ─────────────────────────────────────────────────────────────────

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.ProcessedInvoice
	err  error
}

func (n *recordingNotifier) NotifyProcessed(_ context.Context, inv ports.ProcessedInvoice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, inv)
	return n.err
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// sampleRecord cupón válido sin normalizar, como lo devolvería el modelo.
func sampleRecord(t *testing.T) *nfe.Record {
	t.Helper()
	data, err := os.ReadFile("../../domain/nfe/testdata/nfce_mercado.json")
	require.NoError(t, err)
	rec, err := nfe.Decode(data)
	require.NoError(t, err)
	return rec
}

func fixedClock() func() time.Time {
	t0 := time.Date(2025, 10, 23, 21, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}
