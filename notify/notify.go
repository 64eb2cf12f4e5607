package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Metrics counts envelope delivery outcomes across all sinks.
type Metrics struct {
	delivered atomic.Int64
	dropped   atomic.Int64
}

// Snapshot is a point-in-time read of Metrics.
type Snapshot struct {
	Delivered int64
	Dropped   int64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{Delivered: m.delivered.Load(), Dropped: m.dropped.Load()}
}

// Notifier fans out Envelopes to every registered Sink whose allow-list
// matches the envelope's kind. Delivery is best-effort: a sink's error is
// logged and never surfaced to the caller — "notify_silent" semantics.
// Delivery is not asynchronous: Notify returns only after every matching
// sink's Send has returned.
type Notifier struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics Metrics
}

// New creates a Notifier over the given sinks.
func New(sinks []Sink, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sinks: sinks, logger: logger}
}

// Metrics returns the notifier's delivery counters.
func (n *Notifier) Metrics() *Metrics { return &n.metrics }

// Notify delivers env to every sink that allows its kind, concurrently, and
// blocks until all of those Send calls have returned. Notify applies no
// timeout of its own: the webhook sink bounds its request with its
// configured timeout (default 30s), and other sinks take as long as their
// Send takes. Notify never returns an error.
func (n *Notifier) Notify(ctx context.Context, env Envelope) {
	var wg sync.WaitGroup
	for _, sink := range n.sinks {
		if !sink.ShouldNotify(env.Kind) {
			continue
		}
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			if err := s.Send(ctx, env); err != nil {
				n.metrics.dropped.Add(1)
				n.logger.Warn("notification delivery failed",
					"sink", s.Name(), "kind", env.Kind, "task_id", env.TaskID, "error", err)
				return
			}
			n.metrics.delivered.Add(1)
		}(sink)
	}
	wg.Wait()
}
