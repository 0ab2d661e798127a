package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bova-research/dcatlas/pkg/geocode"
)

// RunStatus tracks the lifecycle of a cleaning run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary holds the counts reported by `clean status` and written to the
// run manifest.
type RunSummary struct {
	Total        int            `json:"total" yaml:"total"`
	Kept         int            `json:"kept" yaml:"kept"`
	Geocoded     int            `json:"geocoded" yaml:"geocoded"`
	Secret       int            `json:"secret" yaml:"secret"`
	Dropped      int            `json:"dropped" yaml:"dropped"`
	ByProvider   map[string]int `json:"by_provider,omitempty" yaml:"by_provider,omitempty"`
	ByDropReason map[string]int `json:"by_drop_reason,omitempty" yaml:"by_drop_reason,omitempty"`
}

// Run is one invocation of `clean run` over an input dataset.
type Run struct {
	ID        string
	Input     string
	Status    RunStatus
	Summary   *RunSummary
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resolution records the outcome for a single record within a run. Resumed
// runs skip records that already have one.
type Resolution struct {
	RecordID string
	Outcome  string
	Detail   string
}

// Resolution outcomes.
const (
	OutcomeKept    = "kept"
	OutcomeSecret  = "secret"
	OutcomeDropped = "dropped"
)

// Store persists run state and geocode results in SQLite. It implements
// geocode.Cache so the cascade client shares the same database.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// New opens the checkpoint database at path and configures WAL mode. The ttl
// bounds how long cached geocode results stay valid.
func New(path string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "checkpoint: exec %s", pragma)
		}
	}
	return &Store{db: db, ttl: ttl}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	input      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS resolutions (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	record_id   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT,
	resolved_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, record_id)
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	key        TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_resolutions_run_id ON resolutions(run_id);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "checkpoint: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- Runs ---

func (s *Store) CreateRun(ctx context.Context, input string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, input, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: insert run")
	}

	return &Run{
		ID:        id,
		Input:     input,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteRun marks a run finished and stores its summary.
func (s *Store) CompleteRun(ctx context.Context, runID string, sum *RunSummary) error {
	sumJSON, err := json.Marshal(sum)
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusComplete), string(sumJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *Store) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

// LatestRun returns the most recently created run, or (nil, nil) when the
// database is empty.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, status, summary, created_at, updated_at FROM runs
		 ORDER BY created_at DESC LIMIT 1`,
	)
	r, err := scanRun(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// ResumableRun returns the most recent run over the given input that is still
// in the running state, or (nil, nil) when there is nothing to resume.
func (s *Store) ResumableRun(ctx context.Context, input string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, status, summary, created_at, updated_at FROM runs
		 WHERE input = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		input, string(RunStatusRunning),
	)
	r, err := scanRun(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, status, summary, created_at, updated_at FROM runs
		 ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "checkpoint: list runs iterate")
}

// --- Resolutions ---

// MarkResolved records the outcome for one record. Re-marking a record
// replaces the previous outcome.
func (s *Store) MarkResolved(ctx context.Context, runID string, res Resolution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resolutions (run_id, record_id, outcome, detail, resolved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, record_id) DO UPDATE SET
			outcome = excluded.outcome,
			detail = excluded.detail,
			resolved_at = excluded.resolved_at`,
		runID, res.RecordID, res.Outcome, res.Detail, time.Now().UTC(),
	)
	return eris.Wrapf(err, "checkpoint: mark resolved %s/%s", runID, res.RecordID)
}

// Resolutions returns every resolved record for a run, keyed by record ID.
func (s *Store) Resolutions(ctx context.Context, runID string) (map[string]Resolution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, outcome, detail FROM resolutions WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: resolutions for %s", runID)
	}
	defer rows.Close()

	out := make(map[string]Resolution)
	for rows.Next() {
		var r Resolution
		var detail sql.NullString
		if err := rows.Scan(&r.RecordID, &r.Outcome, &detail); err != nil {
			return nil, eris.Wrap(err, "checkpoint: scan resolution")
		}
		r.Detail = detail.String
		out[r.RecordID] = r
	}
	return out, eris.Wrap(rows.Err(), "checkpoint: resolutions iterate")
}

// CountOutcomes tallies resolutions per outcome for a run.
func (s *Store) CountOutcomes(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM resolutions WHERE run_id = ? GROUP BY outcome`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: count outcomes for %s", runID)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, eris.Wrap(err, "checkpoint: scan outcome count")
		}
		out[outcome] = n
	}
	return out, eris.Wrap(rows.Err(), "checkpoint: count outcomes iterate")
}

// --- Geocode cache (implements geocode.Cache) ---

func (s *Store) GetGeocode(ctx context.Context, key string) (*geocode.Result, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM geocode_cache WHERE key = ? AND expires_at > datetime('now')`,
		key,
	)

	var resultJSON string
	err := row.Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "checkpoint: get geocode")
	}

	var r geocode.Result
	if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
		return nil, false, eris.Wrap(err, "checkpoint: unmarshal geocode result")
	}
	return &r, true, nil
}

func (s *Store) PutGeocode(ctx context.Context, key string, r *geocode.Result) error {
	resultJSON, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal geocode result")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (key, result, cached_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
			result = excluded.result,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, string(resultJSON), now, now.Add(s.ttl),
	)
	return eris.Wrap(err, "checkpoint: put geocode")
}

// PruneExpired deletes geocode cache rows past their TTL.
func (s *Store) PruneExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM geocode_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "checkpoint: prune expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "checkpoint: rows affected")
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Input, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: scan run")
	}

	if summaryJSON.Valid {
		r.Summary = &RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "checkpoint: unmarshal summary")
		}
	}
	return &r, nil
}
