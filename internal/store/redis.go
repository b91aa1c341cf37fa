package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"jobtracker/internal/model"
)

// DefaultPrefix namespaces every key the tracker writes.
const DefaultPrefix = "jobtracker:"

// Redis stores queue order in a list of entry ids and the entries in a
// hash, so removing a synced subset never rewrites the rest.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedis wraps rdb. An empty prefix selects DefaultPrefix.
func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (s *Redis) queueKey() string   { return s.prefix + "queue" }
func (s *Redis) itemsKey() string   { return s.prefix + "queue:items" }
func (s *Redis) pendingKey() string { return s.prefix + "pending" }
func (s *Redis) mirrorKey() string  { return s.prefix + "mirror" }

// Enqueue appends rec unless the same application is already queued, in
// which case the existing entry is returned. The check and the append are
// not atomic; only one capture process writes a queue.
func (s *Redis) Enqueue(ctx context.Context, rec model.JobRecord) (QueueEntry, error) {
	queued, err := s.List(ctx)
	if err != nil {
		return QueueEntry{}, err
	}
	for _, e := range queued {
		if model.SameApplication(e.Record, rec) {
			return e, nil
		}
	}

	e := QueueEntry{ID: uuid.NewString(), Record: rec, QueuedAt: time.Now().UTC()}
	data, err := json.Marshal(e)
	if err != nil {
		return QueueEntry{}, fmt.Errorf("marshal queue entry: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.itemsKey(), e.ID, data)
	pipe.RPush(ctx, s.queueKey(), e.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return QueueEntry{}, fmt.Errorf("redis enqueue: %w", err)
	}
	return e, nil
}

func (s *Redis) List(ctx context.Context) ([]QueueEntry, error) {
	ids, err := s.rdb.LRange(ctx, s.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := s.rdb.HMGet(ctx, s.itemsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}

	entries := make([]QueueEntry, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Order list and hash drifted; the id has no payload.
			continue
		}
		var e QueueEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal queue entry %s: %w", ids[i], err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Redis) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	for _, id := range ids {
		pipe.LRem(ctx, s.queueKey(), 0, id)
	}
	pipe.HDel(ctx, s.itemsKey(), ids...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis remove: %w", err)
	}
	return nil
}

func (s *Redis) SavePending(ctx context.Context, rec model.JobRecord) error {
	return s.setJSON(ctx, s.pendingKey(), rec)
}

func (s *Redis) LoadPending(ctx context.Context) (model.JobRecord, error) {
	var rec model.JobRecord
	err := s.getJSON(ctx, s.pendingKey(), &rec)
	return rec, err
}

func (s *Redis) ClearPending(ctx context.Context) error {
	return s.rdb.Del(ctx, s.pendingKey()).Err()
}

func (s *Redis) LoadMirror(ctx context.Context) ([]model.JobRecord, error) {
	var recs []model.JobRecord
	if err := s.getJSON(ctx, s.mirrorKey(), &recs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return recs, nil
}

func (s *Redis) SaveMirror(ctx context.Context, recs []model.JobRecord) error {
	if recs == nil {
		recs = []model.JobRecord{}
	}
	return s.setJSON(ctx, s.mirrorKey(), recs)
}

func (s *Redis) Close() error { return nil }

func (s *Redis) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Redis) getJSON(ctx context.Context, key string, v any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
