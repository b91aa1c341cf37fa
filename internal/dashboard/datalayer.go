// Package dashboard is the data layer behind the dashboard: it keeps the
// list of applications in sync with the backend, falls back to a local
// mirror when the backend is unreachable, and accepts records pushed by
// the capture daemon.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"jobtracker/internal/backend"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

var (
	// ErrDuplicate rejects a record that matches an existing one by
	// company and position.
	ErrDuplicate = errors.New("an application for this company and position already exists")
	// ErrNotFound is returned for an id the mirror does not hold.
	ErrNotFound = errors.New("application not found")
)

// API is the backend as seen by the dashboard. *backend.Client satisfies it.
type API interface {
	List(ctx context.Context) ([]model.JobRecord, error)
	Create(ctx context.Context, rec model.JobRecord) (model.JobRecord, error)
	Update(ctx context.Context, id string, patch model.Patch) error
	Delete(ctx context.Context, id string) error
}

// DataLayer owns the dashboard's list of applications.
type DataLayer struct {
	api    API
	mirror store.Mirror
	log    *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	apps   []model.JobRecord
	online bool
}

// NewDataLayer constructs a DataLayer. The list is empty until Load.
func NewDataLayer(api API, mirror store.Mirror, log *slog.Logger) *DataLayer {
	return &DataLayer{
		api:    api,
		mirror: mirror,
		log:    log.With("component", "dashboard"),
		now:    time.Now,
	}
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// Load fetches every record from the backend and refreshes the mirror. When
// the backend fails the mirror is used instead.
func (d *DataLayer) Load(ctx context.Context) ([]model.JobRecord, error) {
	recs, err := d.api.List(ctx)
	if err != nil {
		d.log.Warn("backend unavailable; loading local mirror", "err", err)
		recs, err = d.mirror.LoadMirror(ctx)
		if err != nil {
			return nil, fmt.Errorf("load mirror: %w", err)
		}
		d.mu.Lock()
		d.apps = slices.Clone(recs)
		d.online = false
		d.mu.Unlock()
		return recs, nil
	}

	d.mu.Lock()
	d.apps = slices.Clone(recs)
	d.online = true
	d.mu.Unlock()
	d.persist(ctx, recs)
	return recs, nil
}

// Applications returns a copy of the current list.
func (d *DataLayer) Applications() []model.JobRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.apps)
}

// Online reports whether the last backend call succeeded.
func (d *DataLayer) Online() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

// Filter returns the records whose company, position, location or salary
// contains search (case-insensitive) and whose status equals status. An
// empty search or status matches everything.
func (d *DataLayer) Filter(search string, status model.Status) []model.JobRecord {
	needle := strings.ToLower(strings.TrimSpace(search))

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.JobRecord, 0, len(d.apps))
	for _, r := range d.apps {
		if status != "" && r.Status != status {
			continue
		}
		if needle != "" && !containsFold(needle, r.Company, r.Position, r.Location, r.Salary) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Stats summarises the list by status.
type Stats struct {
	Total int `json:"total"`
	// Active counts applications still awaiting an outcome.
	Active   int                  `json:"active"`
	ByStatus map[model.Status]int `json:"byStatus"`
	// Percentages of Total per status, rounded. Nil when Total is zero.
	Percent map[model.Status]int `json:"percent,omitempty"`
}

// Stats counts the current list by status.
func (d *DataLayer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{Total: len(d.apps), ByStatus: make(map[model.Status]int, len(model.AllStatuses))}
	for _, st := range model.AllStatuses {
		s.ByStatus[st] = 0
	}
	for _, r := range d.apps {
		st := r.Status
		if st == "" {
			st = model.DefaultStatus
		}
		s.ByStatus[st]++
		if !model.IsClosed(st) {
			s.Active++
		}
	}
	if s.Total > 0 {
		s.Percent = make(map[model.Status]int, len(s.ByStatus))
		for st, n := range s.ByStatus {
			s.Percent[st] = (n*100 + s.Total/2) / s.Total
		}
	}
	return s
}

// ─── Writes ───────────────────────────────────────────────────────────────────

// Add creates rec on the backend. When the backend is unreachable the
// record is kept in the mirror under a local id, unless an application
// with the same company and position already exists.
func (d *DataLayer) Add(ctx context.Context, rec model.JobRecord) (model.JobRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.JobRecord{}, err
	}
	now := d.now()
	rec = rec.WithCreateDefaults().Normalize(now)

	created, err := d.api.Create(ctx, rec)
	switch {
	case err == nil:
		d.mu.Lock()
		d.online = true
		d.apps = upsert(d.apps, created)
		snapshot := slices.Clone(d.apps)
		d.mu.Unlock()
		d.persist(ctx, snapshot)
		return created, nil
	case errors.Is(err, backend.ErrDuplicate):
		return model.JobRecord{}, ErrDuplicate
	}

	d.log.Warn("backend create failed; saving locally", "company", rec.Company, "err", err)

	d.mu.Lock()
	d.online = false
	if slices.ContainsFunc(d.apps, func(r model.JobRecord) bool { return model.SameApplication(r, rec) }) {
		d.mu.Unlock()
		return model.JobRecord{}, ErrDuplicate
	}
	rec.ID = d.localID(now)
	rec.CreatedAt = model.Timestamp(now)
	rec.UpdatedAt = rec.CreatedAt
	d.apps = append(d.apps, rec)
	snapshot := slices.Clone(d.apps)
	d.mu.Unlock()

	d.persist(ctx, snapshot)
	return rec, nil
}

// Update applies patch to id on the backend, or to the mirror when the
// backend fails.
func (d *DataLayer) Update(ctx context.Context, id string, patch model.Patch) (model.JobRecord, error) {
	if err := patch.Validate(); err != nil {
		return model.JobRecord{}, err
	}
	// The patched record must still be a valid record.
	if existing, ok := d.find(id); ok {
		if err := patch.Apply(existing).Validate(); err != nil {
			return model.JobRecord{}, err
		}
	}

	backendErr := d.api.Update(ctx, id, patch)
	if backendErr != nil {
		d.log.Warn("backend update failed; updating locally", "id", id, "err", backendErr)
	}

	d.mu.Lock()
	d.online = backendErr == nil
	i := slices.IndexFunc(d.apps, func(r model.JobRecord) bool { return r.ID == id })
	if i < 0 {
		d.mu.Unlock()
		if backendErr == nil {
			return model.JobRecord{ID: id}, nil
		}
		return model.JobRecord{}, ErrNotFound
	}
	updated := patch.Apply(d.apps[i])
	if err := updated.Validate(); err != nil {
		d.mu.Unlock()
		return model.JobRecord{}, err
	}
	updated.UpdatedAt = model.Timestamp(d.now())
	d.apps[i] = updated
	snapshot := slices.Clone(d.apps)
	d.mu.Unlock()

	d.persist(ctx, snapshot)
	return updated, nil
}

func (d *DataLayer) find(id string) (model.JobRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := slices.IndexFunc(d.apps, func(r model.JobRecord) bool { return r.ID == id })
	if i < 0 {
		return model.JobRecord{}, false
	}
	return d.apps[i], true
}

// Delete removes id on the backend, or from the mirror when the backend
// fails.
func (d *DataLayer) Delete(ctx context.Context, id string) error {
	backendErr := d.api.Delete(ctx, id)
	if backendErr != nil {
		d.log.Warn("backend delete failed; deleting locally", "id", id, "err", backendErr)
	}

	d.mu.Lock()
	d.online = backendErr == nil
	before := len(d.apps)
	d.apps = slices.DeleteFunc(d.apps, func(r model.JobRecord) bool { return r.ID == id })
	removed := len(d.apps) < before
	snapshot := slices.Clone(d.apps)
	d.mu.Unlock()

	if !removed && backendErr != nil {
		return ErrNotFound
	}
	d.persist(ctx, snapshot)
	return nil
}

// Receive adds a record delivered by the capture daemon. It reports false
// when the record duplicates one already listed.
func (d *DataLayer) Receive(ctx context.Context, rec model.JobRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	now := d.now()
	rec = rec.Normalize(now)

	d.mu.Lock()
	dup := slices.ContainsFunc(d.apps, func(r model.JobRecord) bool {
		return (rec.ID != "" && r.ID == rec.ID) || model.SameApplication(r, rec)
	})
	if dup {
		d.mu.Unlock()
		d.log.Debug("ignoring duplicate delivery", "company", rec.Company, "position", rec.Position)
		return false, nil
	}
	if rec.ID == "" {
		rec.ID = d.localID(now)
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = model.Timestamp(now)
	}
	d.apps = append(d.apps, rec)
	snapshot := slices.Clone(d.apps)
	d.mu.Unlock()

	d.persist(ctx, snapshot)
	d.log.Info("received application", "company", rec.Company, "position", rec.Position)
	return true, nil
}

// Apply folds one live-channel message into the list.
func (d *DataLayer) Apply(ctx context.Context, msg model.LiveMessage) {
	d.mu.Lock()
	switch msg.Type {
	case model.LiveInitialData:
		d.apps = slices.Clone(msg.Applications)
	case model.LiveNewApplication:
		if msg.Application == nil {
			d.mu.Unlock()
			return
		}
		id := msg.Application.ID
		if slices.ContainsFunc(d.apps, func(r model.JobRecord) bool { return r.ID == id }) {
			d.mu.Unlock()
			return
		}
		d.apps = append(d.apps, *msg.Application)
	case model.LiveApplicationUpdated:
		if msg.Application == nil {
			d.mu.Unlock()
			return
		}
		i := slices.IndexFunc(d.apps, func(r model.JobRecord) bool { return r.ID == msg.Application.ID })
		if i < 0 {
			d.mu.Unlock()
			return
		}
		d.apps[i] = *msg.Application
	default:
		d.mu.Unlock()
		d.log.Warn("unknown live message", "type", msg.Type)
		return
	}
	d.online = true
	snapshot := slices.Clone(d.apps)
	d.mu.Unlock()

	d.persist(ctx, snapshot)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// persist writes the mirror. A failure only costs the offline copy.
func (d *DataLayer) persist(ctx context.Context, recs []model.JobRecord) {
	if err := d.mirror.SaveMirror(ctx, recs); err != nil {
		d.log.Warn("save mirror", "err", err)
	}
}

// localID returns a timestamp id not yet used in the list. Callers hold mu.
func (d *DataLayer) localID(now time.Time) string {
	id := model.NewLocalID(now)
	for n := now.UnixMilli(); slices.ContainsFunc(d.apps, func(r model.JobRecord) bool { return r.ID == id }); {
		n++
		id = strconv.FormatInt(n, 10)
	}
	return id
}

func upsert(apps []model.JobRecord, rec model.JobRecord) []model.JobRecord {
	if rec.ID != "" {
		if i := slices.IndexFunc(apps, func(r model.JobRecord) bool { return r.ID == rec.ID }); i >= 0 {
			apps[i] = rec
			return apps
		}
	}
	return append(apps, rec)
}
