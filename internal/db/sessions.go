package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionRow mirrors one row of import_sessions (spec.md §6). Stage result
// blobs are stored as opaque JSON text; internal/session owns their shape
// and versioning.
type SessionRow struct {
	SessionID         string
	LocID             string
	AddressState      sql.NullString
	SubID             sql.NullString
	Status            string
	SourcePaths       string
	TotalFiles        int
	ProcessedFiles    int
	TotalBytes        int64
	ProcessedBytes    int64
	StartedAt         string
	CompletedAt       sql.NullString
	Error             sql.NullString
	CanResume         bool
	LastStep          int
	ScanResult        sql.NullString
	HashResults       sql.NullString
	CopyResults       sql.NullString
	ValidationResults sql.NullString
}

// InsertSession creates the initial import_sessions row (Orchestrator
// step 0, §4.6).
func InsertSession(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, s SessionRow) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO import_sessions (session_id, locid, address_state, subid, status, source_paths, total_files, processed_files, total_bytes, processed_bytes, started_at, can_resume, last_step)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.LocID, s.AddressState, s.SubID, s.Status, s.SourcePaths, s.TotalFiles, s.ProcessedFiles, s.TotalBytes, s.ProcessedBytes, s.StartedAt, boolToInt(s.CanResume), s.LastStep,
	)
	if err != nil {
		return fmt.Errorf("db: insert session %s: %w", s.SessionID, err)
	}
	return nil
}

// UpdateSessionCheckpoint persists a stage's result blob and advances
// last_step, called after each of stages 1-4 completes (§4.6, §8
// property 4: resume never re-executes a finished stage).
func UpdateSessionCheckpoint(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, sessionID string, step int, status string, resultColumn string, resultJSON string, processedFiles int, processedBytes int64) error {
	query := fmt.Sprintf(
		`UPDATE import_sessions SET last_step = ?, status = ?, %s = ?, processed_files = ?, processed_bytes = ? WHERE session_id = ?`,
		resultColumn,
	)
	_, err := q.ExecContext(ctx, query, step, status, resultJSON, processedFiles, processedBytes, sessionID)
	if err != nil {
		return fmt.Errorf("db: checkpoint session %s at step %d: %w", sessionID, step, err)
	}
	return nil
}

// FinishSession marks a session terminal (Completed or Cancelled/Failed),
// recording completed_at and, on failure, the error text (§3).
func FinishSession(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, sessionID, status, completedAt string, sessionErr string, canResume bool) error {
	_, err := q.ExecContext(ctx,
		`UPDATE import_sessions SET status = ?, completed_at = ?, error = ?, can_resume = ? WHERE session_id = ?`,
		status, completedAt, nullable(sessionErr), boolToInt(canResume), sessionID,
	)
	if err != nil {
		return fmt.Errorf("db: finish session %s: %w", sessionID, err)
	}
	return nil
}

// LoadSession fetches one session row by id.
func LoadSession(ctx context.Context, q Queryer, sessionID string) (SessionRow, error) {
	row := q.QueryRowContext(ctx,
		`SELECT session_id, locid, address_state, subid, status, source_paths, total_files, processed_files, total_bytes, processed_bytes, started_at, completed_at, error, can_resume, last_step, scan_result, hash_results, copy_results, validation_results
		 FROM import_sessions WHERE session_id = ?`, sessionID)

	var s SessionRow
	var canResume int
	if err := row.Scan(
		&s.SessionID, &s.LocID, &s.AddressState, &s.SubID, &s.Status, &s.SourcePaths, &s.TotalFiles, &s.ProcessedFiles, &s.TotalBytes, &s.ProcessedBytes,
		&s.StartedAt, &s.CompletedAt, &s.Error, &canResume, &s.LastStep,
		&s.ScanResult, &s.HashResults, &s.CopyResults, &s.ValidationResults,
	); err != nil {
		if err == sql.ErrNoRows {
			return SessionRow{}, fmt.Errorf("db: session %s: %w", sessionID, ErrSessionNotFound)
		}
		return SessionRow{}, fmt.Errorf("db: load session %s: %w", sessionID, err)
	}
	s.CanResume = canResume != 0
	return s, nil
}

// ErrSessionNotFound is returned by LoadSession when no row matches.
var ErrSessionNotFound = fmt.Errorf("session not found")

// ResumableSessions returns sessions whose status is non-terminal and
// can_resume is set, ordered by most recently started (§4.6
// GetResumableSessions).
func ResumableSessions(ctx context.Context, q Queryer) ([]SessionRow, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT session_id, locid, address_state, subid, status, source_paths, total_files, processed_files, total_bytes, processed_bytes, started_at, completed_at, error, can_resume, last_step, scan_result, hash_results, copy_results, validation_results
		 FROM import_sessions
		 WHERE can_resume = 1 AND status NOT IN ('completed', 'cancelled')
		 ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db: query resumable sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var s SessionRow
		var canResume int
		if err := rows.Scan(
			&s.SessionID, &s.LocID, &s.AddressState, &s.SubID, &s.Status, &s.SourcePaths, &s.TotalFiles, &s.ProcessedFiles, &s.TotalBytes, &s.ProcessedBytes,
			&s.StartedAt, &s.CompletedAt, &s.Error, &canResume, &s.LastStep,
			&s.ScanResult, &s.HashResults, &s.CopyResults, &s.ValidationResults,
		); err != nil {
			return nil, fmt.Errorf("db: scan resumable session: %w", err)
		}
		s.CanResume = canResume != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
