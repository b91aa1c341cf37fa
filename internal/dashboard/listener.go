package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"jobtracker/internal/store"
)

// Announcer keeps this dashboard listed in the registry so capture can
// deliver to it, and removes it on shutdown.
type Announcer struct {
	reg      *store.Registry
	self     store.Dashboard
	interval time.Duration
	log      *slog.Logger
}

// NewAnnouncer constructs an Announcer for self.
func NewAnnouncer(reg *store.Registry, self store.Dashboard, interval time.Duration, log *slog.Logger) *Announcer {
	return &Announcer{reg: reg, self: self, interval: interval, log: log.With("component", "registry")}
}

// Run registers immediately, then on every heartbeat until ctx is done.
func (a *Announcer) Run(ctx context.Context) error {
	if err := a.reg.Register(ctx, a.self); err != nil {
		return err
	}
	a.log.Info("dashboard registered", "id", a.self.ID, "url", a.self.URL)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := a.reg.Unregister(cleanupCtx, a.self.ID); err != nil {
				a.log.Warn("unregister dashboard", "err", err)
			}
			return nil
		case <-ticker.C:
			if err := a.reg.Register(ctx, a.self); err != nil && ctx.Err() == nil {
				a.log.Warn("registry heartbeat", "err", err)
			}
		}
	}
}

// StorageListener takes records capture injected into this dashboard's
// slot and hands them to the DataLayer.
type StorageListener struct {
	reg   *store.Registry
	id    string
	layer *DataLayer
	log   *slog.Logger
}

// NewStorageListener constructs a listener for dashboard id.
func NewStorageListener(reg *store.Registry, id string, layer *DataLayer, log *slog.Logger) *StorageListener {
	return &StorageListener{reg: reg, id: id, layer: layer, log: log.With("component", "storage")}
}

// Run subscribes to the storage channel until ctx is done.
func (l *StorageListener) Run(ctx context.Context) error {
	sub := l.reg.Subscribe(ctx, l.id)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			l.take(ctx)
		}
	}
}

func (l *StorageListener) take(ctx context.Context) {
	env, err := l.reg.TakeInjected(ctx, l.id)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		l.log.Warn("read injected record", "err", err)
		return
	}
	if _, err := l.layer.Receive(ctx, env.JobData); err != nil {
		l.log.Warn("injected record rejected", "err", err)
	}
}
