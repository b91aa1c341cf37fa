package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobtracker/internal/model"
)

// Postgres is the durable driver. The caller owns the pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps pool. Call Migrate once before use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS sync_queue (
	id           UUID PRIMARY KEY,
	company      TEXT NOT NULL DEFAULT '',
	job_position TEXT NOT NULL DEFAULT '',
	record       JSONB NOT NULL,
	queued_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sync_queue_queued_at_idx ON sync_queue (queued_at);

CREATE TABLE IF NOT EXISTS pending_extraction (
	slot       SMALLINT PRIMARY KEY DEFAULT 1 CHECK (slot = 1),
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mirror_records (
	ord    INTEGER PRIMARY KEY,
	record JSONB NOT NULL
);`

// Migrate creates the tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Enqueue inserts rec unless the same application is already queued, in
// which case the existing entry is returned.
func (s *Postgres) Enqueue(ctx context.Context, rec model.JobRecord) (QueueEntry, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return QueueEntry{}, fmt.Errorf("marshal record: %w", err)
	}
	e := QueueEntry{ID: uuid.NewString(), Record: rec, QueuedAt: time.Now().UTC()}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sync_queue (id, company, job_position, record, queued_at)
		 SELECT $1, $2, $3, $4::jsonb, $5
		 WHERE NOT EXISTS (
		   SELECT 1 FROM sync_queue
		   WHERE lower(btrim(company)) = lower(btrim($2))
		     AND lower(btrim(job_position)) = lower(btrim($3))
		 )`,
		e.ID, rec.Company, rec.Position, string(raw), e.QueuedAt,
	)
	if err != nil {
		return QueueEntry{}, fmt.Errorf("insert sync_queue: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return e, nil
	}

	row := s.pool.QueryRow(ctx,
		`SELECT id::text, record, queued_at FROM sync_queue
		 WHERE lower(btrim(company)) = lower(btrim($1))
		   AND lower(btrim(job_position)) = lower(btrim($2))
		 ORDER BY queued_at LIMIT 1`,
		rec.Company, rec.Position,
	)
	existing, err := scanEntry(row)
	if err != nil {
		return QueueEntry{}, fmt.Errorf("select queued duplicate: %w", err)
	}
	return existing, nil
}

func (s *Postgres) List(ctx context.Context) ([]QueueEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, record, queued_at FROM sync_queue ORDER BY queued_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sync_queue: %w", err)
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Postgres) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM sync_queue WHERE id::text = ANY($1)`, ids); err != nil {
		return fmt.Errorf("delete sync_queue: %w", err)
	}
	return nil
}

func (s *Postgres) SavePending(ctx context.Context, rec model.JobRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO pending_extraction (slot, record, updated_at) VALUES (1, $1::jsonb, now())
		 ON CONFLICT (slot) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("upsert pending_extraction: %w", err)
	}
	return nil
}

func (s *Postgres) LoadPending(ctx context.Context) (model.JobRecord, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM pending_extraction WHERE slot = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.JobRecord{}, ErrNotFound
	}
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("select pending_extraction: %w", err)
	}
	var rec model.JobRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.JobRecord{}, fmt.Errorf("unmarshal pending: %w", err)
	}
	return rec, nil
}

func (s *Postgres) ClearPending(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_extraction`)
	return err
}

func (s *Postgres) LoadMirror(ctx context.Context) ([]model.JobRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM mirror_records ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("query mirror_records: %w", err)
	}
	defer rows.Close()

	var recs []model.JobRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var rec model.JobRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal mirror record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// SaveMirror replaces the mirror in one transaction.
func (s *Postgres) SaveMirror(ctx context.Context, recs []model.JobRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM mirror_records`); err != nil {
		return fmt.Errorf("clear mirror_records: %w", err)
	}

	batch := &pgx.Batch{}
	for i, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		batch.Queue(`INSERT INTO mirror_records (ord, record) VALUES ($1, $2::jsonb)`, i, string(raw))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert mirror_records: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Postgres) Close() error { return nil }

func scanEntry(row pgx.Row) (QueueEntry, error) {
	var (
		e   QueueEntry
		raw []byte
	)
	if err := row.Scan(&e.ID, &raw, &e.QueuedAt); err != nil {
		return QueueEntry{}, err
	}
	if err := json.Unmarshal(raw, &e.Record); err != nil {
		return QueueEntry{}, fmt.Errorf("unmarshal queued record: %w", err)
	}
	return e, nil
}
