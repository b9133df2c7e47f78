package events

import (
	"context"
	"log/slog"
	"time"
)

// Flusher drains pending outbox records to the configured publishers.
type Flusher interface {
	FlushOutbox(ctx context.Context) (int, error)
}

// OutboxWorker periodically flushes the transactional outbox.
type OutboxWorker struct {
	flusher  Flusher
	interval time.Duration
	logger   *slog.Logger
}

func NewOutboxWorker(flusher Flusher, interval time.Duration, logger *slog.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{flusher: flusher, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, flushing on every tick.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started", slog.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopping")
			return ctx.Err()
		case <-ticker.C:
			sent, err := w.flusher.FlushOutbox(ctx)
			if err != nil {
				w.logger.Error("outbox flush failed", slog.String("error", err.Error()))
				continue
			}
			if sent > 0 {
				w.logger.Info("outbox flushed", slog.Int("events", sent))
			}
		}
	}
}
