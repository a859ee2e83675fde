// Package telemetry registra uso y actualiza la telemetría de bindings fuera
// del camino de decisión. Encolar nunca bloquea: con la cola llena el evento
// se descarta y se cuenta. Los errores de escritura se loguean y se tragan.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/metrics"
	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

const (
	KindUsage = "usage"
	KindTouch = "touch"
)

// Sink es donde terminan las escrituras.
type Sink interface {
	repository.UsageRepository
	TouchBinding(ctx context.Context, licenseKey, deviceID string, seen repository.DeviceSeen) error
}

// Config ajusta la cola.
type Config struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

func (c *Config) defaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
}

type task struct {
	kind string
	run  func(ctx context.Context) error
}

// Recorder es la cola de telemetría.
type Recorder struct {
	sink Sink
	cfg  Config
	log  *zap.Logger

	mu     sync.RWMutex
	closed bool
	q      chan task
	g      *errgroup.Group
}

// New crea el recorder. Hay que llamar Start para procesar la cola.
func New(sink Sink, cfg Config) *Recorder {
	cfg.defaults()
	return &Recorder{
		sink: sink,
		cfg:  cfg,
		log:  logger.L().With(logger.Component("telemetry")),
		q:    make(chan task, cfg.QueueSize),
	}
}

// Start lanza los workers. Cancelar ctx no corta la cola: Close la drena.
func (r *Recorder) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	r.g = &errgroup.Group{}
	for i := 0; i < r.cfg.Workers; i++ {
		r.g.Go(func() error {
			for t := range r.q {
				r.exec(base, t)
			}
			return nil
		})
	}
}

func (r *Recorder) exec(base context.Context, t task) {
	ctx, cancel := context.WithTimeout(base, r.cfg.WriteTimeout)
	defer cancel()
	if err := t.run(ctx); err != nil {
		r.log.Warn("telemetry_write_failed", zap.String("kind", t.kind), logger.Err(err))
	}
}

// Close deja de aceptar eventos, drena la cola y espera a los workers o a
// que ctx venza.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.q)
	r.mu.Unlock()

	if r.g == nil {
		return nil
	}
	start := time.Now()
	done := make(chan struct{})
	go func() {
		_ = r.g.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("telemetry_drained", logger.Duration("took", time.Since(start)))
		return nil
	case <-ctx.Done():
		r.log.Warn("telemetry_drain_timeout", logger.Duration("waited", time.Since(start)), zap.Int("pending", len(r.q)))
		return ctx.Err()
	}
}

func (r *Recorder) enqueue(t task) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(t.kind)
		return false
	}
	select {
	case r.q <- t:
		return true
	default:
		r.drop(t.kind)
		return false
	}
}

func (r *Recorder) drop(kind string) {
	metrics.TelemetryDropped.WithLabelValues(kind).Inc()
	r.log.Debug("telemetry_dropped", zap.String("kind", kind))
}

// RecordUsage encola un evento de uso. Devuelve false si se descartó.
func (r *Recorder) RecordUsage(ev repository.UsageEvent) bool {
	if r == nil {
		return false
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return r.enqueue(task{kind: KindUsage, run: func(ctx context.Context) error {
		return r.sink.InsertUsageEvent(ctx, ev)
	}})
}

// TouchBinding encola la actualización de last_seen/ip/user-agent/endpoint.
func (r *Recorder) TouchBinding(licenseKey, deviceID string, seen repository.DeviceSeen) bool {
	if r == nil {
		return false
	}
	return r.enqueue(task{kind: KindTouch, run: func(ctx context.Context) error {
		return r.sink.TouchBinding(ctx, licenseKey, deviceID, seen)
	}})
}
