package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobtracker/internal/model"
)

// Memory is an in-process Store. State is lost on exit.
type Memory struct {
	mu      sync.Mutex
	queue   []QueueEntry
	pending *model.JobRecord
	mirror  []model.JobRecord
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Enqueue(_ context.Context, rec model.JobRecord) (QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.queue {
		if model.SameApplication(e.Record, rec) {
			return e, nil
		}
	}
	e := QueueEntry{ID: uuid.NewString(), Record: rec, QueuedAt: time.Now().UTC()}
	m.queue = append(m.queue, e)
	return e, nil
}

func (m *Memory) List(_ context.Context) ([]QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue), nil
}

func (m *Memory) Remove(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = slices.DeleteFunc(m.queue, func(e QueueEntry) bool {
		return slices.Contains(ids, e.ID)
	})
	return nil
}

func (m *Memory) SavePending(_ context.Context, rec model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &rec
	return nil
}

func (m *Memory) LoadPending(_ context.Context) (model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return model.JobRecord{}, ErrNotFound
	}
	return *m.pending, nil
}

func (m *Memory) ClearPending(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	return nil
}

func (m *Memory) LoadMirror(_ context.Context) ([]model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.mirror), nil
}

func (m *Memory) SaveMirror(_ context.Context, recs []model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirror = slices.Clone(recs)
	return nil
}

func (m *Memory) Close() error { return nil }
