package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pollbooth/pkg/platform/circuit"
)

// ErrForwardingDegraded is reported by Health while the sink keeps failing.
var ErrForwardingDegraded = errors.New("audit forwarding degraded")

const (
	DefaultPublishTimeout = 5 * time.Second
	DefaultDrainTimeout   = 10 * time.Second
)

// Sink receives entries forwarded off the request path.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// Worker drains a bounded inbox into a Sink. Sink failures are logged and
// dropped; the store stays the source of truth. A circuit breaker collapses
// a sink outage into one warning instead of an error per entry.
type Worker struct {
	sink           Sink
	inbox          chan Entry
	logger         *slog.Logger
	breaker        *circuit.Breaker
	publishTimeout time.Duration
	drainTimeout   time.Duration
}

type WorkerOption func(*Worker)

// WithPublishTimeout bounds each Publish call. A timed-out publish counts
// as a sink failure.
func WithPublishTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.publishTimeout = d
		}
	}
}

// WithDrainTimeout bounds how long shutdown spends forwarding what is still
// buffered. Entries left after the deadline are dropped.
func WithDrainTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.drainTimeout = d
		}
	}
}

func NewWorker(sink Sink, buffer int, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		sink:           sink,
		inbox:          make(chan Entry, buffer),
		logger:         logger,
		breaker:        circuit.New("audit-forwarder", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		publishTimeout: DefaultPublishTimeout,
		drainTimeout:   DefaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Health fails while the breaker is open.
func (w *Worker) Health(context.Context) error {
	if w.breaker.IsOpen() {
		return ErrForwardingDegraded
	}
	return nil
}

// Enqueue never blocks; it reports false when the inbox is full.
func (w *Worker) Enqueue(entry Entry) bool {
	select {
	case w.inbox <- entry:
		return true
	default:
		return false
	}
}

// Run forwards entries until ctx is cancelled, then drains what is buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case entry := <-w.inbox:
			w.publish(ctx, entry)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()
	for {
		if ctx.Err() != nil {
			if left := len(w.inbox); left > 0 {
				w.logger.Warn("audit drain deadline reached, dropping buffered entries", "dropped", left)
			}
			return
		}
		select {
		case entry := <-w.inbox:
			w.publish(ctx, entry)
		default:
			return
		}
	}
}

func (w *Worker) publish(parent context.Context, entry Entry) {
	ctx, cancel := context.WithTimeout(parent, w.publishTimeout)
	defer cancel()

	err := w.sink.Publish(ctx, entry)
	if err == nil {
		if _, change := w.breaker.RecordSuccess(); change.Closed {
			w.logger.InfoContext(ctx, "audit forwarding recovered")
		}
		return
	}

	degraded, change := w.breaker.RecordFailure()
	switch {
	case change.Opened:
		w.logger.WarnContext(ctx, "audit forwarding degraded, suppressing per-entry errors",
			"breaker", w.breaker.Name(),
			"error", err,
		)
	case degraded:
		w.logger.DebugContext(ctx, "dropped audit entry while forwarding is degraded", "entry_id", entry.ID)
	default:
		w.logger.ErrorContext(ctx, "failed to forward audit entry",
			"entry_id", entry.ID,
			"booth_id", entry.BoothID,
			"error", err,
		)
	}
}
