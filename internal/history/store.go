// File: internal/history/store.go
// Brief: SQLite record of finished deploy and destroy runs.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/devstack/pkg/devstack"

	_ "modernc.org/sqlite"
)

const RelPath = ".devstack/history.sqlite"

// Run is one recorded deploy or destroy.
type Run struct {
	ID         int64           `json:"id"`
	Stack      string          `json:"stack"`
	Command    string          `json:"command"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Modes      map[string]bool `json:"modes,omitempty"`
	Totals     Totals          `json:"totals"`
}

type Totals struct {
	Enabled  int `json:"enabled"`
	Success  int `json:"success"`
	Failure  int `json:"failure"`
	Complete int `json:"complete"`
	Skipped  int `json:"skipped"`
}

type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open opens <dir>/.devstack/history.sqlite. A read-only open fails when the
// database does not exist yet.
func Open(dir string, readOnly bool) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(absDir, RelPath)
	if readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := path
	if readOnly {
		u := url.URL{Scheme: "file", Path: path}
		q := u.Query()
		q.Set("mode", "ro")
		q.Set("_busy_timeout", "5000")
		u.RawQuery = q.Encode()
		dsn = u.String()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db, path: path, readOnly: readOnly}
	if !readOnly {
		if err := s.initSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA foreign_keys=ON;`,
		`PRAGMA busy_timeout=5000;`,
		`
CREATE TABLE IF NOT EXISTS devstack_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  stack TEXT NOT NULL,
  command TEXT NOT NULL,
  status TEXT NOT NULL,
  started_at_ns INTEGER NOT NULL,
  finished_at_ns INTEGER NOT NULL,
  modes_json TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS devstack_layers (
  run_id INTEGER NOT NULL,
  position INTEGER NOT NULL,
  layer TEXT NOT NULL,
  outcome TEXT NOT NULL,
  code INTEGER NOT NULL,
  started_at_ns INTEGER NOT NULL,
  finished_at_ns INTEGER NOT NULL,
  PRIMARY KEY (run_id, position),
  FOREIGN KEY (run_id) REFERENCES devstack_runs(id) ON DELETE CASCADE
);`,
		`CREATE INDEX IF NOT EXISTS idx_devstack_runs_stack ON devstack_runs(stack, started_at_ns);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// RecordRun stores res and its per-layer results in one transaction.
func (s *Store) RecordRun(ctx context.Context, res *devstack.RunResult) error {
	if res == nil {
		return fmt.Errorf("run result is nil")
	}
	if s.readOnly {
		return fmt.Errorf("history store %s is read-only", s.path)
	}
	modesJSON, err := json.Marshal(res.Modes)
	if err != nil {
		return err
	}
	status := "succeeded"
	if res.Failed() {
		status = "failed"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := tx.ExecContext(ctx, `
INSERT INTO devstack_runs (stack, command, status, started_at_ns, finished_at_ns, modes_json)
VALUES (?, ?, ?, ?, ?, ?)
`, res.Stack, res.Command, status, unixNano(res.StartedAt), unixNano(res.FinishedAt), string(modesJSON))
	if err != nil {
		return err
	}
	runID, err := r.LastInsertId()
	if err != nil {
		return err
	}
	for i, l := range res.Layers {
		_, err := tx.ExecContext(ctx, `
INSERT INTO devstack_layers (run_id, position, layer, outcome, code, started_at_ns, finished_at_ns)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, runID, i, l.Layer, string(l.Outcome), l.Code, unixNano(l.StartedAt), unixNano(l.FinishedAt))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns the newest runs first. An empty stack lists every stack.
func (s *Store) ListRuns(ctx context.Context, stack string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.stack, r.command, r.status, r.started_at_ns, r.finished_at_ns, r.modes_json,
  COALESCE(SUM(CASE WHEN l.outcome != 'skipped' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN l.outcome = 'success' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN l.outcome = 'failure' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN l.outcome = 'complete' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN l.outcome = 'skipped' THEN 1 ELSE 0 END), 0)
FROM devstack_runs r
LEFT JOIN devstack_layers l ON l.run_id = r.id
WHERE ? = '' OR r.stack = ?
GROUP BY r.id
ORDER BY r.started_at_ns DESC, r.id DESC
LIMIT ?
`, stack, stack, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		var modesJSON string
		if err := rows.Scan(&run.ID, &run.Stack, &run.Command, &run.Status, &started, &finished, &modesJSON,
			&run.Totals.Enabled, &run.Totals.Success, &run.Totals.Failure, &run.Totals.Complete, &run.Totals.Skipped); err != nil {
			return nil, err
		}
		run.StartedAt = fromUnixNano(started)
		run.FinishedAt = fromUnixNano(finished)
		_ = json.Unmarshal([]byte(modesJSON), &run.Modes)
		out = append(out, run)
	}
	return out, rows.Err()
}

// Layers returns the per-layer results of one run in execution order.
func (s *Store) Layers(ctx context.Context, runID int64) ([]devstack.LayerResult, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT layer, outcome, code, started_at_ns, finished_at_ns
FROM devstack_layers
WHERE run_id = ?
ORDER BY position
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []devstack.LayerResult
	for rows.Next() {
		var l devstack.LayerResult
		var outcome string
		var started, finished int64
		if err := rows.Scan(&l.Layer, &outcome, &l.Code, &started, &finished); err != nil {
			return nil, err
		}
		l.Outcome = devstack.Outcome(outcome)
		l.StartedAt = fromUnixNano(started)
		l.FinishedAt = fromUnixNano(finished)
		out = append(out, l)
	}
	return out, rows.Err()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

var _ devstack.HistoryRecorder = (*Store)(nil)
