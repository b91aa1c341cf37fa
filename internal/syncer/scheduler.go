package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pinger checks that the backend is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthSetter receives the backend reachability after every tick.
type HealthSetter interface {
	SetServing(serving bool)
}

// Scheduler wraps robfig/cron and runs the Worker on a fixed interval.
type Scheduler struct {
	cron   *cron.Cron
	worker *Worker
	pinger Pinger
	health HealthSetter
	spec   string
	log    *slog.Logger

	// Ticks never overlap; a slow backend delays the next flush instead.
	mu sync.Mutex
}

// New creates a Scheduler that fires every interval. pinger and health
// may be nil.
func New(worker *Worker, pinger Pinger, health HealthSetter, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		worker: worker,
		pinger: pinger,
		health: health,
		spec:   fmt.Sprintf("@every %s", interval),
		log:    log.With("component", "scheduler"),
	}
}

// Start registers the job and starts the scheduler. One flush runs
// immediately so records queued by a previous run are not held back.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", "spec", s.spec)

	go s.Tick(ctx)
	return nil
}

// Stop stops the scheduler and waits for a running flush.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info("cron stopped")
}

// Tick runs one flush.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	if s.pinger != nil {
		err := s.pinger.Health(ctx)
		if s.health != nil {
			s.health.SetServing(err == nil)
		}
		if err != nil {
			s.log.Warn("backend unreachable; skipping flush", "err", err)
			return
		}
	}

	if _, err := s.worker.Run(ctx); err != nil {
		s.log.Error("flush failed", "err", err)
	}
}
