// Package history stores pipeline run outcomes in PostgreSQL.
//
// Only outcomes are kept: per-entry state, row count, error code and text.
// Report contents are never written.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/capview/internal/config"
	"github.com/JonMunkholm/capview/internal/core"
)

// MaxRecent caps how many runs Recent returns.
const MaxRecent = 100

const schema = `
CREATE TABLE IF NOT EXISTS capview_runs (
	id           UUID PRIMARY KEY,
	config_path  TEXT        NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	config_code  TEXT        NOT NULL DEFAULT '',
	config_error TEXT        NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS capview_runs_started_at_idx ON capview_runs (started_at DESC);

CREATE TABLE IF NOT EXISTS capview_run_entries (
	run_id      UUID    NOT NULL REFERENCES capview_runs (id) ON DELETE CASCADE,
	entry_index INT     NOT NULL,
	kind        TEXT    NOT NULL,
	remote_path TEXT    NOT NULL,
	local_path  TEXT    NOT NULL,
	state       TEXT    NOT NULL,
	row_count   INT     NOT NULL DEFAULT 0,
	duration_ms BIGINT  NOT NULL DEFAULT 0,
	error_code  TEXT    NOT NULL DEFAULT '',
	error_text  TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, entry_index)
);
`

// Run is one recorded pipeline run.
type Run struct {
	ID          uuid.UUID `json:"id"`
	ConfigPath  string    `json:"config_path"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ConfigCode  string    `json:"config_code,omitempty"`
	ConfigError string    `json:"config_error,omitempty"`
	Entries     []Entry   `json:"entries"`
}

// Entry is one recorded entry outcome.
type Entry struct {
	Index      int    `json:"index"`
	Kind       string `json:"kind"`
	RemotePath string `json:"remote_path"`
	LocalPath  string `json:"local_path"`
	State      string `json:"state"`
	Rows       int    `json:"rows"`
	DurationMS int64  `json:"duration_ms"`
	ErrorCode  string `json:"error_code,omitempty"`
	ErrorText  string `json:"error_text,omitempty"`
}

// Store records runs. It implements core.RunRecorder.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects a pool sized from cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if !cfg.Enabled() {
		return nil, errors.New("history: no database URL configured")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the history tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	return nil
}

// Record writes report and its entries in one transaction.
func (s *Store) Record(ctx context.Context, report *core.RunReport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after Commit

	var cfgCode, cfgText string
	if report.ConfigErr != nil {
		cfgCode = core.MapError(report.ConfigErr).Code
		cfgText = report.ConfigErr.Error()
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO capview_runs (id, config_path, started_at, finished_at, config_code, config_error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		report.RunID, report.ConfigPath, report.StartedAt, report.FinishedAt, cfgCode, cfgText,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range entriesFromReport(report) {
		batch.Queue(
			`INSERT INTO capview_run_entries
			 (run_id, entry_index, kind, remote_path, local_path, state, row_count, duration_ms, error_code, error_text)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			report.RunID, e.Index, e.Kind, e.RemotePath, e.LocalPath, e.State, e.Rows, e.DurationMS, e.ErrorCode, e.ErrorText,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert run entries: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// entriesFromReport converts outcomes to their stored form.
func entriesFromReport(report *core.RunReport) []Entry {
	out := make([]Entry, 0, len(report.Entries))
	for _, o := range report.Entries {
		e := Entry{
			Index:      o.Index,
			Kind:       string(o.Kind),
			RemotePath: o.RemotePath,
			LocalPath:  o.LocalPath,
			State:      string(o.State),
			Rows:       o.Rows,
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			e.ErrorCode = core.MapError(o.Err).Code
			e.ErrorText = o.Err.Error()
		}
		out = append(out, e)
	}
	return out
}

// Recent returns up to limit runs, newest first, with their entries.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, config_path, started_at, finished_at, config_code, config_error
		 FROM capview_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	index := make(map[uuid.UUID]int)
	ids := make([]string, 0)
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ConfigPath, &r.StartedAt, &r.FinishedAt, &r.ConfigCode, &r.ConfigError); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Entries = make([]Entry, 0, core.EntryCount)
		index[r.ID] = len(runs)
		ids = append(ids, r.ID.String())
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return runs, nil
	}

	entryRows, err := s.pool.Query(ctx,
		`SELECT run_id, entry_index, kind, remote_path, local_path, state, row_count, duration_ms, error_code, error_text
		 FROM capview_run_entries WHERE run_id = ANY($1::uuid[]) ORDER BY run_id, entry_index`, ids)
	if err != nil {
		return nil, fmt.Errorf("query run entries: %w", err)
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var runID uuid.UUID
		var e Entry
		if err := entryRows.Scan(&runID, &e.Index, &e.Kind, &e.RemotePath, &e.LocalPath,
			&e.State, &e.Rows, &e.DurationMS, &e.ErrorCode, &e.ErrorText); err != nil {
			return nil, fmt.Errorf("scan run entry: %w", err)
		}
		if i, ok := index[runID]; ok {
			runs[i].Entries = append(runs[i].Entries, e)
		}
	}
	if err := entryRows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
