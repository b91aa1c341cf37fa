package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"jobtracker/internal/model"
)

// InjectedKey is the per-dashboard key capture writes a record under when
// messaging the dashboard failed.
const InjectedKey = "extensionJobData"

// Dashboard is a running dashboard instance as announced in the registry.
type Dashboard struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	InboxURL string    `json:"inboxUrl"`
	SeenAt   time.Time `json:"seenAt"`
}

// Registry is the shared directory of open dashboards, plus the injection
// slot and storage-event channel of each one. Entries not refreshed within
// the TTL are treated as closed.
type Registry struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRegistry wraps rdb. An empty prefix selects DefaultPrefix.
func NewRegistry(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Registry) dashboardsKey() string { return r.prefix + "dashboards" }

func (r *Registry) injectedKey(id string) string {
	return r.prefix + "dashboard:" + id + ":" + InjectedKey
}

// Channel is the storage-event channel of dashboard id.
func (r *Registry) Channel(id string) string {
	return r.prefix + "dashboard:" + id + ":storage"
}

// Register announces d, refreshing SeenAt. Call it on a heartbeat.
func (r *Registry) Register(ctx context.Context, d Dashboard) error {
	if d.ID == "" {
		return errors.New("dashboard id cannot be empty")
	}
	d.SeenAt = time.Now().UTC()
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}
	if err := r.rdb.HSet(ctx, r.dashboardsKey(), d.ID, data).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Unregister removes id and any record still waiting in its slot.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	pipe.HDel(ctx, r.dashboardsKey(), id)
	pipe.Del(ctx, r.injectedKey(id))
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the live dashboards ordered by id. Stale
// entries are dropped from the registry as a side effect.
func (r *Registry) List(ctx context.Context) ([]Dashboard, error) {
	all, err := r.rdb.HGetAll(ctx, r.dashboardsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	var (
		live  []Dashboard
		stale []string
	)
	cutoff := time.Now().Add(-r.ttl)
	for id, raw := range all {
		var d Dashboard
		if err := json.Unmarshal([]byte(raw), &d); err != nil || (r.ttl > 0 && d.SeenAt.Before(cutoff)) {
			stale = append(stale, id)
			continue
		}
		live = append(live, d)
	}
	if len(stale) > 0 {
		_ = r.rdb.HDel(ctx, r.dashboardsKey(), stale...).Err()
	}

	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })
	return live, nil
}

// Inject writes env into the slot of dashboard id and publishes a storage
// event on its channel. It fails when no listener received the event, and
// the slot is cleared again so the record is not delivered twice once the
// caller queues it.
func (r *Registry) Inject(ctx context.Context, id string, env model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := r.rdb.Set(ctx, r.injectedKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	n, err := r.rdb.Publish(ctx, r.Channel(id), InjectedKey).Result()
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	if n == 0 {
		if err := r.rdb.Del(ctx, r.injectedKey(id)).Err(); err != nil {
			return fmt.Errorf("dashboard %s: no storage listener; clear slot: %w", id, err)
		}
		return fmt.Errorf("dashboard %s: no storage listener", id)
	}
	return nil
}

// TakeInjected reads and clears the slot of dashboard id. It returns
// ErrNotFound when the slot is empty.
func (r *Registry) TakeInjected(ctx context.Context, id string) (model.Envelope, error) {
	data, err := r.rdb.GetDel(ctx, r.injectedKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Envelope{}, ErrNotFound
		}
		return model.Envelope{}, fmt.Errorf("redis getdel: %w", err)
	}
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// Subscribe opens the storage-event channel of dashboard id.
func (r *Registry) Subscribe(ctx context.Context, id string) *redis.PubSub {
	return r.rdb.Subscribe(ctx, r.Channel(id))
}
