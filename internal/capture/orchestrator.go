// Package capture reads job-posting pages and hands the extracted record
// to the delivery pipeline.
//
// The Orchestrator owns a two-state machine:
//
//	Idle --Extract--> Extracting --done/failed--> Idle
//
// A trigger that arrives while Extracting is rejected with
// ErrAlreadyExtracting; it is not queued.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"jobtracker/internal/delivery"
	"jobtracker/internal/extract"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

// State of the orchestrator.
type State int32

const (
	Idle State = iota
	Extracting
)

func (s State) String() string {
	if s == Extracting {
		return "extracting"
	}
	return "idle"
}

var (
	// ErrAlreadyExtracting rejects a trigger while another extraction runs.
	ErrAlreadyExtracting = errors.New("already extracting")
	// ErrNoJobData means neither the site extractor nor the aggressive
	// fallback found a company or a position.
	ErrNoJobData = errors.New("no job data found on page; enter it manually")
)

// Deliverer is the delivery pipeline as seen by capture.
type Deliverer interface {
	Deliver(ctx context.Context, rec model.JobRecord) (delivery.Result, error)
}

// Orchestrator runs one extraction at a time.
type Orchestrator struct {
	fetcher   PageFetcher
	indicator Indicator
	pending   store.Pending
	deliverer Deliverer
	settle    time.Duration
	log       *slog.Logger
	now       func() time.Time

	state atomic.Int32
}

// NewOrchestrator wires an orchestrator. settle is the pause before the
// page is read so content triggered by a click can render.
func NewOrchestrator(
	fetcher PageFetcher,
	indicator Indicator,
	pending store.Pending,
	deliverer Deliverer,
	settle time.Duration,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		indicator: indicator,
		pending:   pending,
		deliverer: deliverer,
		settle:    settle,
		log:       log.With("component", "capture"),
		now:       time.Now,
	}
}

// State reports whether an extraction is running.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// Extract reads url and returns the best record it can build. The result
// is also stored as the pending extraction.
func (o *Orchestrator) Extract(ctx context.Context, url string) (model.JobRecord, error) {
	if !o.state.CompareAndSwap(int32(Idle), int32(Extracting)) {
		return model.JobRecord{}, ErrAlreadyExtracting
	}
	defer o.state.Store(int32(Idle))

	o.indicator.Show(url)
	rec, err := o.extract(ctx, url)
	o.indicator.Hide(url, err)
	if err != nil {
		return rec, err
	}

	if o.pending != nil {
		if err := o.pending.SavePending(ctx, rec); err != nil {
			o.log.Warn("save pending extraction", "err", err)
		}
	}
	return rec, nil
}

func (o *Orchestrator) extract(ctx context.Context, url string) (model.JobRecord, error) {
	if err := sleep(ctx, o.settle); err != nil {
		return model.JobRecord{}, err
	}

	page, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("fetch page: %w", err)
	}

	ex := extract.ForURL(url)
	rec := ex.Extract(page.Doc)
	now := o.now()
	rec.JobURL = url
	rec.ExtractedAt = model.Timestamp(now)

	if !rec.Usable() {
		o.log.Info("site extractor found nothing; trying aggressive extraction", "extractor", ex.Name(), "url", url)
		rec = rec.Merge(extract.Aggressive(page.Doc))
	}
	rec = rec.Normalize(now)
	if !rec.Usable() {
		return rec, ErrNoJobData
	}

	o.log.Debug("extracted", "extractor", ex.Name(), "company", rec.Company, "position", rec.Position)
	return rec, nil
}

// Capture extracts url and delivers the result.
func (o *Orchestrator) Capture(ctx context.Context, url string) (delivery.Result, error) {
	rec, err := o.Extract(ctx, url)
	if err != nil {
		return delivery.Result{}, err
	}
	return o.Save(ctx, rec)
}

// Save delivers rec and clears the pending extraction once a tier
// accepted it.
func (o *Orchestrator) Save(ctx context.Context, rec model.JobRecord) (delivery.Result, error) {
	res, err := o.deliverer.Deliver(ctx, rec)
	if err != nil {
		return res, err
	}
	if o.pending != nil {
		if err := o.pending.ClearPending(ctx); err != nil {
			o.log.Warn("clear pending extraction", "err", err)
		}
	}
	return res, nil
}

// Pending returns the last extraction not yet saved.
func (o *Orchestrator) Pending(ctx context.Context) (model.JobRecord, error) {
	if o.pending == nil {
		return model.JobRecord{}, store.ErrNotFound
	}
	return o.pending.LoadPending(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
