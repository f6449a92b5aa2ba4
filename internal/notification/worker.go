package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"licensing/internal/notification/metrics"
	"licensing/pkg/platform/tx"
)

// Publisher delivers a batch of events. A nil error means every event in the
// batch was accepted.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}

// Worker drains unpublished outbox rows in batches.
type Worker struct {
	store     Store
	publisher Publisher
	runner    tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
	batchSize int
	interval  time.Duration
}

type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func NewWorker(store Store, publisher Publisher, runner tx.Runner, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:     store,
		publisher: publisher,
		runner:    runner,
		logger:    slog.Default(),
		batchSize: 100,
		interval:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. Full batches are drained back to back.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := w.ProcessBatch(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return ctx.Err()
				}
				w.metrics.IncrementPublishErrors()
				w.logger.ErrorContext(ctx, "outbox batch failed", "error", err)
				break
			}
			if n < w.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessBatch publishes one batch and marks it published in the same
// transaction. It returns how many events were published.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	published := 0
	err := w.runner.RunInTx(tx.WithShardKey(ctx, "outbox"), func(ctx context.Context) error {
		events, err := w.store.FetchUnpublished(ctx, w.batchSize)
		if err != nil {
			return err
		}
		w.metrics.SetBatchSize(len(events))
		if len(events) == 0 {
			return nil
		}
		if err := w.publisher.Publish(ctx, events); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
			w.metrics.IncrementPublished(string(e.Type))
		}
		if err := w.store.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(events)
		return nil
	})
	return published, err
}
