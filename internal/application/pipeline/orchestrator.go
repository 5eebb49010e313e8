package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/lentefiscal/internal/application/fiscal"
	"github.com/jhoicas/lentefiscal/internal/application/ports"
	"github.com/jhoicas/lentefiscal/internal/domain"
	"github.com/jhoicas/lentefiscal/internal/domain/nfe"
)

// Persister guarda un registro validado (fiscal.PersistUseCase).
type Persister interface {
	Persist(ctx context.Context, rec *nfe.Record, opts ...fiscal.PersistOption) (fiscal.PersistResult, error)
}

// Config intervalos del ciclo.
type Config struct {
	PollInterval   time.Duration
	ExtractTimeout time.Duration
}

// Option ajusta el orquestador.
type Option func(*Orchestrator)

// WithNotifier activa el aviso al ERP tras cada archivo procesado.
func WithNotifier(n ports.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator ciclo secuencial sobre el bucket de recibidos. Un solo ciclo a la vez.
type Orchestrator struct {
	store     ports.ObjectStore
	extractor ports.DocumentExtractor
	persister Persister
	notifier  ports.Notifier
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewOrchestrator construye el orquestador con sus dependencias ya creadas.
func NewOrchestrator(store ports.ObjectStore, extractor ports.DocumentExtractor, persister Persister, cfg Config, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		extractor: extractor,
		persister: persister,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run ejecuta un ciclo de inmediato y luego uno cada PollInterval, contado desde el fin
// del anterior, hasta que se cancele ctx.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.cfg.PollInterval <= 0 {
		return errors.New("pipeline: intervalo de polling inválido")
	}
	o.log.Info().Dur("interval", o.cfg.PollInterval).Dur("extract_timeout", o.cfg.ExtractTimeout).
		Msg("pipeline iniciado")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("pipeline detenido")
			return nil
		case <-timer.C:
		}
		o.RunCycle(ctx)
		timer.Reset(o.cfg.PollInterval)
	}
}

// RunCycle procesa una vez todo lo que hay en recibidos. Solo un fallo de listado aborta el ciclo.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{StartedAt: o.now()}
	received := o.store.Buckets().Received

	objects, err := o.store.List(ctx, received)
	if err != nil {
		report.ListErr = err
		report.Duration = o.now().Sub(report.StartedAt)
		o.log.Error().Err(err).Str("bucket", received).Msg("no se pudo listar el bucket; ciclo abortado")
		return report
	}
	if len(objects) == 0 {
		o.log.Debug().Str("bucket", received).Msg("sin archivos nuevos")
	}

	for _, obj := range objects {
		if ctx.Err() != nil {
			break
		}
		report.Files = append(report.Files, o.processFile(ctx, obj))
	}

	report.Duration = o.now().Sub(report.StartedAt)
	if len(report.Files) > 0 {
		o.log.Info().
			Int("files", len(report.Files)).
			Int("processed", report.Count(OutcomeProcessed)).
			Int("error", report.Count(OutcomeFailed)).
			Int("vanished", report.Count(OutcomeVanished)).
			Int("relocation_pending", report.Count(OutcomeRelocationPending)).
			Int("interrupted", report.Count(OutcomeInterrupted)).
			Dur("duration", report.Duration).
			Msg("ciclo terminado")
	}
	return report
}

func (o *Orchestrator) processFile(ctx context.Context, obj ports.ObjectInfo) FileResult {
	b := o.store.Buckets()
	start := o.now()
	res := FileResult{Key: obj.Key, State: StateDiscovered}
	log := o.log.With().Str("bucket", b.Received).Str("key", obj.Key).Logger()
	done := func(r FileResult) FileResult {
		r.Duration = o.now().Sub(start)
		return r
	}

	mime, ok := ports.ContentTypeFor(obj.Key)
	if !ok {
		return done(o.fail(ctx, log, res, StateDiscovered,
			fmt.Errorf("%w: extensión %q", domain.ErrUnsupportedFormat, path.Ext(obj.Key))))
	}

	res.State = StateDownloading
	data, err := o.store.Download(ctx, b.Received, obj.Key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("el archivo desapareció antes de descargarlo")
			res.Outcome = OutcomeVanished
			return done(res)
		}
		return done(o.failOrInterrupt(ctx, log, res, StateDownloading, err))
	}

	res.State = StateExtracting
	rec, err := o.extract(ctx, data, mime)
	if err != nil {
		return done(o.failOrInterrupt(ctx, log, res, StateExtracting, err))
	}

	res.State = StateValidating
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return done(o.fail(ctx, log, res, StateValidating, err))
	}

	res.State = StatePersisting
	persisted, err := o.persister.Persist(ctx, rec, fiscal.WithSourceObject(b.Received+"/"+obj.Key))
	if err != nil {
		return done(o.failOrInterrupt(ctx, log, res, StatePersisting, err))
	}
	res.InvoiceID, res.Created = persisted.InvoiceID, persisted.Created
	log = log.With().Str("invoice_id", persisted.InvoiceID).Logger()

	res.State = StateRelocating
	destKey, err := o.store.Move(ctx, b.Received, b.Processed, obj.Key)
	if err != nil {
		res.Outcome = OutcomeRelocationPending
		res.Err = &FileError{Key: obj.Key, State: StateRelocating, Err: err}
		logRelocation(log.Error(), err).Msg("nota persistida pero no se pudo mover a procesados; queda para el próximo ciclo")
		return done(res)
	}

	res.DestKey = destKey
	res.State = StateDone
	res.Outcome = OutcomeProcessed
	res = done(res)
	log.Info().Str("state", string(res.State)).Str("dest_key", destKey).Bool("created", res.Created).Dur("duration", res.Duration).
		Msg("archivo procesado")

	o.notify(ctx, log, ports.ProcessedInvoice{
		InvoiceID: persisted.InvoiceID,
		Created:   persisted.Created,
		Bucket:    b.Processed,
		Key:       destKey,
		Record:    rec,
	})
	return res
}

// extract llama al extractor con el timeout por archivo.
func (o *Orchestrator) extract(ctx context.Context, data []byte, mime string) (*nfe.Record, error) {
	if o.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ExtractTimeout)
		defer cancel()
	}
	rec, err := o.extractor.Extract(ctx, data, mime)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: el extractor no devolvió registro", domain.ErrMalformedResponse)
	}
	return rec, nil
}

// failOrInterrupt deja el archivo en recibidos si el proceso se está deteniendo.
func (o *Orchestrator) failOrInterrupt(ctx context.Context, log zerolog.Logger, res FileResult, state FileState, cause error) FileResult {
	if ctx.Err() != nil {
		res.Outcome = OutcomeInterrupted
		res.Err = &FileError{Key: res.Key, State: state, Err: cause}
		log.Warn().Err(cause).Str("state", string(state)).Msg("proceso detenido; el archivo queda en recibidos")
		return res
	}
	return o.fail(ctx, log, res, state, cause)
}

// fail mueve el archivo a error (bytes originales intactos) y escribe su log.
func (o *Orchestrator) fail(ctx context.Context, log zerolog.Logger, res FileResult, state FileState, cause error) FileResult {
	b := o.store.Buckets()
	res.Err = &FileError{Key: res.Key, State: state, Err: cause}
	log.Error().Err(cause).Str("state", string(state)).Msg("archivo con error; se mueve al bucket de error")

	res.State = StateErrorRelocating
	destKey, err := o.store.Move(ctx, b.Received, b.Error, res.Key)
	if err != nil {
		res.Outcome = OutcomeRelocationPending
		logRelocation(log.Error(), err).Msg("no se pudo mover al bucket de error; queda para el próximo ciclo")
		return res
	}
	res.Outcome = OutcomeFailed
	res.DestKey = destKey

	entry := ports.ErrorLog{
		OriginalFile: res.Key,
		ProcessedAt:  o.now().UTC(),
		Stage:        string(state),
		Cause:        cause.Error(),
	}
	if destKey != res.Key {
		entry.StoredAs = destKey
	}
	if err := o.store.WriteErrorLog(ctx, destKey, entry); err != nil {
		log.Warn().Err(err).Msg("no se pudo escribir el log de error")
	}
	return res
}

func (o *Orchestrator) notify(ctx context.Context, log zerolog.Logger, inv ports.ProcessedInvoice) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyProcessed(ctx, inv); err != nil {
		log.Error().Err(err).Msg("webhook al ERP fallido")
		return
	}
	log.Debug().Msg("webhook enviado al ERP")
}

func logRelocation(ev *zerolog.Event, err error) *zerolog.Event {
	ev = ev.Err(err)
	var rel *domain.RelocationError
	if errors.As(err, &rel) {
		ev = ev.Str("phase", string(rel.Phase)).Str("dest", rel.Dest).Bool("duplicated", rel.Duplicated())
	}
	return ev
}
