// Package syncer flushes the local queue to the backend on a fixed
// interval.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jobtracker/internal/backend"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

// Creator is the backend the queue is flushed to.
type Creator interface {
	Create(ctx context.Context, rec model.JobRecord) (model.JobRecord, error)
}

// Report counts the outcome of one flush.
type Report struct {
	Synced    int
	Duplicate int
	Failed    int
}

// Worker runs one flush of the queue.
type Worker struct {
	queue   store.Queue
	backend Creator
	log     *slog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(queue store.Queue, backend Creator, log *slog.Logger) *Worker {
	return &Worker{queue: queue, backend: backend, log: log.With("component", "syncer")}
}

// Run posts every queued record once. Records the backend accepted, or
// already holds (409), are removed; the rest stay queued for the next run.
func (w *Worker) Run(ctx context.Context) (Report, error) {
	var r Report

	entries, err := w.queue.List(ctx)
	if err != nil {
		return r, fmt.Errorf("list queue: %w", err)
	}
	if len(entries) == 0 {
		return r, nil
	}

	done := make([]string, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		_, err := w.backend.Create(ctx, e.Record)
		switch {
		case err == nil:
			r.Synced++
			done = append(done, e.ID)
		case errors.Is(err, backend.ErrDuplicate):
			r.Duplicate++
			done = append(done, e.ID)
		default:
			r.Failed++
			w.log.Warn("sync failed; keeping entry queued", "entry", e.ID, "company", e.Record.Company, "err", err)
		}
	}

	// Delivered entries are removed even after cancellation.
	if err := w.queue.Remove(context.WithoutCancel(ctx), done...); err != nil {
		return r, fmt.Errorf("remove synced entries: %w", err)
	}

	w.log.Info("queue flushed", "synced", r.Synced, "duplicate", r.Duplicate, "failed", r.Failed)
	return r, nil
}
