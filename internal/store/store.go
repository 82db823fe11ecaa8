package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/gradefactory/internal"
	"github.com/valpere/gradefactory/internal/orchestrator"
)

type Store struct {
	db *sql.DB
}

// connParams make writers wait for the file lock instead of failing with
// SQLITE_BUSY when another process holds it.
const connParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// New opens the history at dbPath. The pool holds a single connection so
// concurrent papers queue on it; queries must not nest open row sets.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+connParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS grading_runs (
		id TEXT PRIMARY KEY,
		input_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		backends TEXT NOT NULL,
		rubric_hash TEXT NOT NULL,
		total INTEGER DEFAULT 0,
		graded INTEGER DEFAULT 0,
		cached INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	-- paper_results holds only complete grading triples
	CREATE TABLE IF NOT EXISTS paper_results (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		paper TEXT NOT NULL,
		cache_key TEXT NOT NULL,
		output_path TEXT,
		cached BOOLEAN DEFAULT FALSE,
		a_text TEXT NOT NULL,
		a_backend TEXT,
		a_model TEXT,
		a_latency_ms INTEGER,
		b_text TEXT NOT NULL,
		b_backend TEXT,
		b_model TEXT,
		b_latency_ms INTEGER,
		m_text TEXT NOT NULL,
		m_backend TEXT,
		m_model TEXT,
		m_latency_ms INTEGER,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (run_id) REFERENCES grading_runs(id)
	);

	CREATE TABLE IF NOT EXISTS paper_failures (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		paper TEXT NOT NULL,
		error TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (run_id) REFERENCES grading_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_results_key ON paper_results(cache_key);
	CREATE INDEX IF NOT EXISTS idx_results_run ON paper_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_failures_run ON paper_failures(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// PaperResult is a row from paper_results.
type PaperResult struct {
	ID         string
	RunID      string
	Paper      string
	CacheKey   string
	OutputPath string
	Cached     bool
	Result     orchestrator.GradingResult
	CreatedAt  time.Time
}

// PaperFailure is a row from paper_failures.
type PaperFailure struct {
	ID        string
	RunID     string
	Paper     string
	Error     string
	CreatedAt time.Time
}

// HistoryStats summarises the grading history.
type HistoryStats struct {
	Runs     int
	Results  int
	Cached   int
	Failures int
	Papers   int
}

// CacheKey identifies a grading outcome: the same paper text graded against
// the same rubric by the same backend selection.
func CacheKey(paperText, rubricFingerprint, selection string) string {
	h := sha256.New()
	h.Write([]byte(normalizeText(paperText)))
	h.Write([]byte{0})
	h.Write([]byte(rubricFingerprint))
	h.Write([]byte{0})
	h.Write([]byte(selection))
	return hex.EncodeToString(h.Sum(nil))
}

// StartRun inserts run and assigns it an ID when it has none.
func (s *Store) StartRun(ctx context.Context, run *internal.GradingRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grading_runs (id, input_dir, output_dir, backends, rubric_hash, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputDir, run.OutputDir, run.Backends, run.RubricHash, run.StartedAt)
	return err
}

// FinishRun stores the final counters of run.
func (s *Store) FinishRun(ctx context.Context, run *internal.GradingRun) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE grading_runs SET total = ?, graded = ?, cached = ?, failed = ?, finished_at = ? WHERE id = ?`,
		run.Total, run.Graded, run.Cached, run.Failed, run.FinishedAt, run.ID)
	return err
}

func (s *Store) SaveResult(ctx context.Context, r *PaperResult) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	a, b, m := r.Result.GraderA, r.Result.GraderB, r.Result.Final
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_results (id, run_id, paper, cache_key, output_path, cached,
			a_text, a_backend, a_model, a_latency_ms,
			b_text, b_backend, b_model, b_latency_ms,
			m_text, m_backend, m_model, m_latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunID, r.Paper, r.CacheKey, r.OutputPath, r.Cached,
		a.Text, a.Backend, a.Model, a.Latency.Milliseconds(),
		b.Text, b.Backend, b.Model, b.Latency.Milliseconds(),
		m.Text, m.Backend, m.Model, m.Latency.Milliseconds(),
		r.CreatedAt)
	return err
}

func (s *Store) SaveFailure(ctx context.Context, runID, paper string, cause error) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_failures (id, run_id, paper, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, paper, cause.Error(), time.Now().UTC())
	return err
}

// Lookup returns the most recent complete result stored under key.
func (s *Store) Lookup(ctx context.Context, key string) (*PaperResult, bool, error) {
	row := s.db.QueryRowContext(ctx, selectResults+` WHERE cache_key = ? ORDER BY created_at DESC LIMIT 1`, key)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// ListRuns returns runs newest first. limit <= 0 returns all of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]internal.GradingRun, error) {
	query := `SELECT id, input_dir, output_dir, backends, rubric_hash, total, graded, cached, failed, started_at, finished_at
		FROM grading_runs ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []internal.GradingRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns a run together with its results and failures.
func (s *Store) GetRun(ctx context.Context, id string) (*internal.GradingRun, []PaperResult, []PaperFailure, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, input_dir, output_dir, backends, rubric_hash, total, graded, cached, failed, started_at, finished_at
		 FROM grading_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil, nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectResults+` WHERE run_id = ? ORDER BY paper`, id)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()

	var results []PaperResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, nil, nil, err
		}
		results = append(results, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}
	rows.Close()

	frows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, paper, error, created_at FROM paper_failures WHERE run_id = ? ORDER BY paper`, id)
	if err != nil {
		return nil, nil, nil, err
	}
	defer frows.Close()

	var failures []PaperFailure
	for frows.Next() {
		var f PaperFailure
		if err := frows.Scan(&f.ID, &f.RunID, &f.Paper, &f.Error, &f.CreatedAt); err != nil {
			return nil, nil, nil, err
		}
		failures = append(failures, f)
	}
	return run, results, failures, frows.Err()
}

// DeleteRun removes a run and everything recorded under it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM paper_results WHERE run_id = ?`,
		`DELETE FROM paper_failures WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM grading_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return tx.Commit()
}

// Clear removes the whole history and returns the number of runs deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM paper_results`); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM paper_failures`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM grading_runs`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Stats returns summary statistics for the grading history.
func (s *Store) Stats(ctx context.Context) (*HistoryStats, error) {
	stats := &HistoryStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM grading_runs),
			(SELECT COUNT(*) FROM paper_results),
			(SELECT COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END), 0) FROM paper_results),
			(SELECT COUNT(*) FROM paper_failures),
			(SELECT COUNT(DISTINCT cache_key) FROM paper_results)`).Scan(
		&stats.Runs,
		&stats.Results,
		&stats.Cached,
		&stats.Failures,
		&stats.Papers,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const selectResults = `SELECT id, run_id, paper, cache_key, COALESCE(output_path, ''), cached,
	a_text, COALESCE(a_backend, ''), COALESCE(a_model, ''), COALESCE(a_latency_ms, 0),
	b_text, COALESCE(b_backend, ''), COALESCE(b_model, ''), COALESCE(b_latency_ms, 0),
	m_text, COALESCE(m_backend, ''), COALESCE(m_model, ''), COALESCE(m_latency_ms, 0),
	created_at FROM paper_results`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row scanner) (*PaperResult, error) {
	var r PaperResult
	var la, lb, lm int64
	a, b, m := &r.Result.GraderA, &r.Result.GraderB, &r.Result.Final
	if err := row.Scan(&r.ID, &r.RunID, &r.Paper, &r.CacheKey, &r.OutputPath, &r.Cached,
		&a.Text, &a.Backend, &a.Model, &la,
		&b.Text, &b.Backend, &b.Model, &lb,
		&m.Text, &m.Backend, &m.Model, &lm,
		&r.CreatedAt); err != nil {
		return nil, err
	}
	a.Role, a.Latency = orchestrator.RoleGraderA, time.Duration(la)*time.Millisecond
	b.Role, b.Latency = orchestrator.RoleGraderB, time.Duration(lb)*time.Millisecond
	m.Role, m.Latency = orchestrator.RoleModerator, time.Duration(lm)*time.Millisecond
	return &r, nil
}

func scanRun(row scanner) (*internal.GradingRun, error) {
	var run internal.GradingRun
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.InputDir, &run.OutputDir, &run.Backends, &run.RubricHash,
		&run.Total, &run.Graded, &run.Cached, &run.Failed, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// so visually identical papers share a cache key.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
