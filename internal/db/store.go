package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/praxislabs/vetta/internal/model"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ErrNotFound is returned when a run or artifact does not exist.
var ErrNotFound = errors.New("not found")

// Store persists runs, their immutable artifacts, and the audit event trail.
type Store struct {
	db *sql.DB
}

// NewStore creates a store backed by an open database handle.
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// RunRecord is a persisted run summary.
type RunRecord struct {
	RunID          string
	CreatedAt      string
	Idea           string
	Status         string
	Classification string
	Composite      float64
	Confidence     string
}

// Event is one audit-trail entry for a run.
type Event struct {
	Seq      int
	TS       string
	Type     string
	Message  string
	DataJSON string
}

// CreateRun inserts the run record and a run_started event.
func (s *Store) CreateRun(ctx context.Context, runID, idea string) error {
	createdAt := now()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(run_id, created_at, idea, status) VALUES(?, ?, ?, ?)`,
		runID, createdAt, idea, StatusRunning); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_started", "run started", ""); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create run: %w", err)
	}
	return nil
}

// AppendEvent records one audit event for a run.
func (s *Store) AppendEvent(ctx context.Context, runID, typ, message, dataJSON string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append event: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, typ, message, dataJSON); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append event: %w", err)
	}
	return nil
}

// FinishRun stores the immutable artifact and marks the run complete, in one
// transaction. Artifacts are insert-only: a revised assessment is a new run.
func (s *Store) FinishRun(ctx context.Context, runID string, v model.Verdict, artifactJSON, markdown string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin finish run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts(run_id, created_at, artifact_json, markdown) VALUES(?, ?, ?, ?)`,
		runID, now(), artifactJSON, markdown); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert artifact: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status=?, classification=?, composite=?, confidence=? WHERE run_id=?`,
		StatusComplete, string(v.Classification), v.Composite, string(v.Confidence), runID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_finalized",
		fmt.Sprintf("verdict %s (composite %.1f, confidence %s)", v.Classification, v.Composite, v.Confidence), ""); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish run: %w", err)
	}
	return nil
}

// FailRun marks the run failed. Partial scorecards are discarded in full, so
// no artifact row is ever written for a failed run.
func (s *Store) FailRun(ctx context.Context, runID, reason string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin fail run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status=? WHERE run_id=?`, StatusFailed, runID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run: %w", err)
	}
	if err := insertEvent(ctx, tx, runID, "run_failed", reason, ""); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fail run: %w", err)
	}
	return nil
}

// GetArtifact loads the stored artifact JSON and markdown for a run.
func (s *Store) GetArtifact(ctx context.Context, runID string) (artifactJSON, markdown string, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT artifact_json, markdown FROM artifacts WHERE run_id=?`, runID)
	if err := row.Scan(&artifactJSON, &markdown); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", fmt.Errorf("artifact for run %s: %w", runID, ErrNotFound)
		}
		return "", "", fmt.Errorf("read artifact: %w", err)
	}
	return artifactJSON, markdown, nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, idea, status,
		        COALESCE(classification, ''), COALESCE(composite, 0), COALESCE(confidence, '')
		 FROM runs ORDER BY created_at DESC, run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.Idea, &r.Status,
			&r.Classification, &r.Composite, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListEvents returns the audit trail for a run in sequence order.
func (s *Store) ListEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, ts, type, message, COALESCE(data_json, '') FROM events WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.TS, &e.Type, &e.Message, &e.DataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PruneRuns deletes old runs per the retention policy and returns how many
// were removed. Keep-last wins over keep-days when both are set. At least one
// bound must be positive; pruning with none would delete every run.
func (s *Store) PruneRuns(ctx context.Context, keepLast, keepDays int) (int, error) {
	if keepLast <= 0 && keepDays <= 0 {
		return 0, fmt.Errorf("prune: at least one of keep-last or keep-days must be set")
	}
	records, err := s.ListRuns(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := ""
	if keepDays > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -keepDays).Format(time.RFC3339)
	}

	deleted := 0
	for i, r := range records {
		keep := false
		if keepLast > 0 && i < keepLast {
			keep = true
		}
		if cutoff != "" && r.CreatedAt >= cutoff {
			keep = true
		}
		if keep {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id=?`, r.RunID); err != nil {
			return deleted, fmt.Errorf("delete run %s: %w", r.RunID, err)
		}
		deleted++
	}
	return deleted, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, runID, typ, message, dataJSON string) error {
	var seq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id=?`, runID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}
	var data any
	if dataJSON != "" {
		data = dataJSON
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events(run_id, seq, ts, type, message, data_json) VALUES(?, ?, ?, ?, ?, ?)`,
		runID, seq+1, now(), typ, message, data); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
