// Package store persists agent run history to SQLite so scans can be
// audited after the fact.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"marknav/internal/agent"
	"marknav/internal/logging"
)

// RunStore records orchestration steps and results. Thread-safe with a
// read-write mutex; the write path is serialized because SQLite only
// supports one writer.
type RunStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// RunRecord is one completed agent run as stored.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	Success    bool      `json:"success"`
	Pointer    string    `json:"pointer,omitempty"`
	Summary    string    `json:"summary"`
	StopReason string    `json:"stop_reason"`
	StepsUsed  int       `json:"steps_used"`
	Evidence   string    `json:"evidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// StepRecord is one orchestration step as stored.
type StepRecord struct {
	RunID     string    `json:"run_id"`
	Step      int       `json:"step"`
	Decision  string    `json:"decision"`
	Accepted  int       `json:"accepted"`
	Progress  string    `json:"progress,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Open creates or opens a run store at dbPath.
func Open(dbPath string) (*RunStore, error) {
	logging.StoreDebug("Opening run store at %s", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	rs := &RunStore{db: db, dbPath: dbPath}
	if err := rs.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure run store schema: %w", err)
	}

	logging.Store("Run store ready at %s", dbPath)
	return rs, nil
}

// ensureSchema creates the run tables if they don't exist.
func (rs *RunStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_runs (
		run_id TEXT PRIMARY KEY,
		success BOOLEAN NOT NULL,
		pointer TEXT,
		summary TEXT,
		stop_reason TEXT NOT NULL,
		steps_used INTEGER NOT NULL,
		evidence TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_steps (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		decision TEXT NOT NULL,
		accepted INTEGER NOT NULL,
		progress TEXT,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_success ON agent_runs(success);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON agent_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_steps_run ON agent_steps(run_id);
	`

	_, err := rs.db.Exec(schema)
	return err
}

// RecordStep implements agent.TraceSink.
func (rs *RunStore) RecordStep(runID string, step int, decision agent.Decision, accepted int, progress string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	_, err := rs.db.Exec(`
		INSERT OR REPLACE INTO agent_steps (run_id, step, decision, accepted, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, step, string(decision), accepted, progress, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record step: %w", err)
	}
	return nil
}

// RecordResult implements agent.TraceSink.
func (rs *RunStore) RecordResult(runID string, result agent.Result) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	evidence, err := json.Marshal(result.Evidence)
	if err != nil {
		return fmt.Errorf("failed to serialize evidence: %w", err)
	}

	_, err = rs.db.Exec(`
		INSERT OR REPLACE INTO agent_runs (run_id, success, pointer, summary, stop_reason, steps_used, evidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, result.Success, result.Pointer, result.Summary,
		string(result.StopReason), result.StepsUsed, string(evidence), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	logging.StoreDebug("Recorded run %s (success=%t, %d steps)", runID, result.Success, result.StepsUsed)
	return nil
}

// GetRun loads one run by id.
func (rs *RunStore) GetRun(runID string) (*RunRecord, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	row := rs.db.QueryRow(`
		SELECT run_id, success, pointer, summary, stop_reason, steps_used, evidence, created_at
		FROM agent_runs WHERE run_id = ?`, runID)

	var rec RunRecord
	var pointer, summary, evidence sql.NullString
	var createdAt int64
	if err := row.Scan(&rec.RunID, &rec.Success, &pointer, &summary,
		&rec.StopReason, &rec.StepsUsed, &evidence, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	rec.Pointer = pointer.String
	rec.Summary = summary.String
	rec.Evidence = evidence.String
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

// RecentRuns returns up to limit runs, newest first.
func (rs *RunStore) RecentRuns(limit int) ([]RunRecord, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := rs.db.Query(`
		SELECT run_id, success, pointer, summary, stop_reason, steps_used, evidence, created_at
		FROM agent_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var pointer, summary, evidence sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.RunID, &rec.Success, &pointer, &summary,
			&rec.StopReason, &rec.StepsUsed, &evidence, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Pointer = pointer.String
		rec.Summary = summary.String
		rec.Evidence = evidence.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Steps returns the step history for a run in order.
func (rs *RunStore) Steps(runID string) ([]StepRecord, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rows, err := rs.db.Query(`
		SELECT run_id, step, decision, accepted, progress, created_at
		FROM agent_steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var rec StepRecord
		var progress sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.RunID, &rec.Step, &rec.Decision,
			&rec.Accepted, &progress, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		rec.Progress = progress.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats summarizes stored runs.
func (rs *RunStore) Stats() (total, succeeded int, err error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	row := rs.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0)
		FROM agent_runs`)
	if err := row.Scan(&total, &succeeded); err != nil {
		return 0, 0, fmt.Errorf("failed to compute stats: %w", err)
	}
	return total, succeeded, nil
}

// Cleanup deletes runs older than the retention window, along with
// their steps.
func (rs *RunStore) Cleanup(olderThan time.Duration) (int64, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).Unix()
	if _, err := rs.db.Exec(`
		DELETE FROM agent_steps WHERE run_id IN
		(SELECT run_id FROM agent_runs WHERE created_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete old steps: %w", err)
	}
	res, err := rs.db.Exec(`DELETE FROM agent_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("Cleaned up %d run(s) older than %s", n, olderThan)
	}
	return n, nil
}

// Close releases the database handle.
func (rs *RunStore) Close() error {
	return rs.db.Close()
}
