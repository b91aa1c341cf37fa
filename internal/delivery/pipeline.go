// Package delivery moves a captured record into persistent storage.
//
// Tiers are tried strictly in order, each awaited before the next:
//
//	primary backend -> fallback backend -> open dashboards -> local queue
//
// The first tier that accepts the record ends the attempt. A record is
// never dropped silently: if even the queue fails, Deliver returns an error
// carrying the last tier's failure.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"jobtracker/internal/backend"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

// Tier names the stage that accepted a record.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierFallback  Tier = "fallback"
	TierMessaging Tier = "messaging"
	TierInjection Tier = "injection"
	TierQueue     Tier = "queue"
)

// Messages reported to the user.
const (
	MsgSaved     = "Job application saved"
	MsgDuplicate = "Job application already exists"
	MsgDashboard = "Data sent directly to JobTracker app"
	MsgQueued    = "Saved locally; it will sync when the tracker is reachable"
)

// ErrUndelivered wraps the last failure when every tier failed.
var ErrUndelivered = errors.New("job application could not be delivered")

// Result reports where a record went.
type Result struct {
	Tier    Tier            `json:"tier"`
	Data    model.JobRecord `json:"data"`
	Message string          `json:"message"`
}

// Creator is a backend that stores records.
type Creator interface {
	Create(ctx context.Context, rec model.JobRecord) (model.JobRecord, error)
}

// Directory lists the dashboards that are currently open.
type Directory interface {
	List(ctx context.Context) ([]store.Dashboard, error)
}

// Messenger hands an envelope to a dashboard directly.
type Messenger interface {
	Send(ctx context.Context, d store.Dashboard, env model.Envelope) error
}

// Injector writes an envelope into a dashboard's storage slot and signals
// it.
type Injector interface {
	Inject(ctx context.Context, id string, env model.Envelope) error
}

// Deps are the collaborators of a Pipeline. Fallback, Dashboards and its
// Messenger/Injector are optional.
type Deps struct {
	Primary    Creator
	Fallback   Creator
	Dashboards Directory
	Messenger  Messenger
	Injector   Injector
	Queue      store.Queue
	// HostPatterns select which registered dashboards receive records.
	HostPatterns []string
}

// Pipeline is safe for concurrent use if its collaborators are.
type Pipeline struct {
	deps Deps
	log  *slog.Logger
	now  func() time.Time
}

// New constructs a Pipeline.
func New(deps Deps, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{deps: deps, log: log.With("component", "delivery"), now: time.Now}
}

// Deliver validates rec and walks the tiers. A 409 from a backend stops
// the walk and returns backend.ErrDuplicate alongside a Result carrying
// the duplicate message.
func (p *Pipeline) Deliver(ctx context.Context, rec model.JobRecord) (Result, error) {
	rec = rec.Normalize(p.now())
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}

	backends := []struct {
		tier Tier
		c    Creator
	}{{TierPrimary, p.deps.Primary}, {TierFallback, p.deps.Fallback}}

	var lastErr error
	for _, b := range backends {
		if b.c == nil {
			continue
		}
		saved, err := b.c.Create(ctx, rec)
		if err == nil {
			p.log.Info("delivered to backend", "tier", b.tier, "company", saved.Company, "position", saved.Position)
			p.notifyDashboards(ctx, saved)
			return Result{Tier: b.tier, Data: saved, Message: MsgSaved}, nil
		}
		if errors.Is(err, backend.ErrDuplicate) {
			p.log.Info("backend already holds application", "tier", b.tier, "company", rec.Company, "position", rec.Position)
			return Result{Tier: b.tier, Data: rec, Message: MsgDuplicate}, err
		}
		p.log.Warn("backend delivery failed", "tier", b.tier, "err", err)
		lastErr = err
	}

	if tier, ok := p.deliverToDashboards(ctx, rec); ok {
		return Result{Tier: tier, Data: rec, Message: MsgDashboard}, nil
	}

	entry, err := p.deps.Queue.Enqueue(ctx, rec)
	if err != nil {
		p.log.Error("queueing failed; record not delivered", "err", err, "previous", lastErr)
		return Result{}, fmt.Errorf("%w: %w", ErrUndelivered, err)
	}
	p.log.Info("queued for sync", "entry", entry.ID, "company", rec.Company, "position", rec.Position)
	return Result{Tier: TierQueue, Data: rec, Message: MsgQueued}, nil
}

// deliverToDashboards hands rec to every open dashboard, by messaging or,
// when that fails, by injection. It reports the best tier that succeeded
// for at least one dashboard.
func (p *Pipeline) deliverToDashboards(ctx context.Context, rec model.JobRecord) (Tier, bool) {
	targets := p.targets(ctx)
	if len(targets) == 0 {
		return "", false
	}

	env := model.NewEnvelope(rec)
	var (
		delivered bool
		tier      = TierInjection
	)
	for _, d := range targets {
		if p.deps.Messenger != nil {
			err := p.deps.Messenger.Send(ctx, d, env)
			if err == nil {
				p.log.Info("delivered to dashboard", "dashboard", d.ID, "via", TierMessaging)
				delivered, tier = true, TierMessaging
				continue
			}
			p.log.Warn("dashboard messaging failed; injecting", "dashboard", d.ID, "err", err)
		}
		if p.deps.Injector == nil {
			continue
		}
		if err := p.deps.Injector.Inject(ctx, d.ID, env); err != nil {
			p.log.Warn("dashboard injection failed", "dashboard", d.ID, "err", err)
			continue
		}
		p.log.Info("delivered to dashboard", "dashboard", d.ID, "via", TierInjection)
		delivered = true
	}
	return tier, delivered
}

// notifyDashboards tells open dashboards about a record the backend just
// stored. Failures are ignored.
func (p *Pipeline) notifyDashboards(ctx context.Context, saved model.JobRecord) {
	if p.deps.Messenger == nil {
		return
	}
	env := model.NewEnvelope(saved)
	for _, d := range p.targets(ctx) {
		if err := p.deps.Messenger.Send(ctx, d, env); err != nil {
			p.log.Debug("dashboard notify failed", "dashboard", d.ID, "err", err)
		}
	}
}

func (p *Pipeline) targets(ctx context.Context) []store.Dashboard {
	if p.deps.Dashboards == nil {
		return nil
	}
	all, err := p.deps.Dashboards.List(ctx)
	if err != nil {
		p.log.Warn("list dashboards", "err", err)
		return nil
	}
	var out []store.Dashboard
	for _, d := range all {
		if MatchesHost(d.URL, p.deps.HostPatterns) {
			out = append(out, d)
		}
	}
	return out
}

// MatchesHost reports whether rawURL's host is one of patterns. A pattern
// without a port matches any port.
func MatchesHost(rawURL string, patterns []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if host == p || (!strings.Contains(p, ":") && strings.ToLower(u.Hostname()) == p) {
			return true
		}
	}
	return false
}
