// Package store persists the local state of the tracker: the queue of
// records waiting for the backend, the single pending extraction and the
// dashboard's mirror of all known records.
//
// Two drivers implement it: Redis (the default, shared with the dashboard
// registry) and PostgreSQL. Memory is used by tests and single-process
// development runs.
package store

import (
	"context"
	"errors"
	"time"

	"jobtracker/internal/model"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("not found")

// QueueEntry is a record waiting for the periodic sync.
type QueueEntry struct {
	ID       string          `json:"id"`
	Record   model.JobRecord `json:"record"`
	QueuedAt time.Time       `json:"queuedAt"`
}

// Queue holds records that no delivery tier accepted. Entries are listed
// in the order they were queued.
type Queue interface {
	Enqueue(ctx context.Context, rec model.JobRecord) (QueueEntry, error)
	List(ctx context.Context) ([]QueueEntry, error)
	Remove(ctx context.Context, ids ...string) error
}

// Pending holds the latest extraction so a later save can pick it up.
type Pending interface {
	SavePending(ctx context.Context, rec model.JobRecord) error
	// LoadPending returns ErrNotFound when nothing is pending.
	LoadPending(ctx context.Context) (model.JobRecord, error)
	ClearPending(ctx context.Context) error
}

// Mirror is the dashboard's local copy of every known record.
type Mirror interface {
	LoadMirror(ctx context.Context) ([]model.JobRecord, error)
	SaveMirror(ctx context.Context, recs []model.JobRecord) error
}

// Store is everything a driver provides.
type Store interface {
	Queue
	Pending
	Mirror
	Close() error
}
