// Package session owns the ImportSession lifecycle: creating, checkpointing,
// resuming, and finishing the resumable state the Orchestrator persists
// after each pipeline stage (spec.md §3, §4.6). It wraps internal/db's
// import_sessions table and versions the stage-result blobs stored there.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

// blobVersion is the current stage-result envelope version (SPEC_FULL.md
// Open Question #1). DecodeStage rejects a blob that carries a different
// version, and the Orchestrator then re-runs that stage and every later one.
const blobVersion = 1

// envelope wraps a stage result with a version tag so a future format
// change can detect and reject stale blobs instead of misparsing them.
type envelope struct {
	V       int             `json:"v"`
	Payload json.RawMessage `json:"payload"`
}

// ErrStaleBlobVersion is returned by DecodeStage when a persisted stage result
// was written by an incompatible version of this tool.
var ErrStaleBlobVersion = fmt.Errorf("session: stage result blob version mismatch")

// Create inserts a new, non-terminal session record in the scanning state,
// persisting the full location (including sub-location) so Resume can
// reconstruct it without dropping SubID/AddressState (§4.6, §8 property 4).
func Create(ctx context.Context, d *db.DB, sessionID string, loc model.LocationInfo, sourcePaths []string) (model.ImportSession, error) {
	paths, err := json.Marshal(sourcePaths)
	if err != nil {
		return model.ImportSession{}, fmt.Errorf("session: marshal source paths: %w", err)
	}

	now := time.Now().UTC()
	row := db.SessionRow{
		SessionID:    sessionID,
		LocID:        loc.LocID,
		AddressState: nullable(loc.AddressState),
		SubID:        nullable(loc.SubID),
		Status:       string(model.SessionScanning),
		SourcePaths:  string(paths),
		StartedAt:    now.Format(time.RFC3339),
		CanResume:    true,
	}
	if err := db.InsertSession(ctx, d.DB, row); err != nil {
		return model.ImportSession{}, err
	}

	return model.ImportSession{
		SessionID:    sessionID,
		LocID:        loc.LocID,
		AddressState: loc.AddressState,
		SubID:        loc.SubID,
		Status:       model.SessionScanning,
		SourcePaths:  sourcePaths,
		StartedAt:    now,
		CanResume:    true,
	}, nil
}

// Checkpoint persists one stage's result and advances the session's status
// and last_step, wrapping the payload in the version envelope (§4.6: the
// Orchestrator checkpoints after stages 1-4; stage 5 ends through Finish).
func Checkpoint(ctx context.Context, d *db.DB, sessionID string, step int, status model.SessionStatus, column string, payload interface{}, processedFiles int, processedBytes int64) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("session: marshal stage %d result: %w", step, err)
	}
	wrapped, err := json.Marshal(envelope{V: blobVersion, Payload: raw})
	if err != nil {
		return fmt.Errorf("session: wrap stage %d envelope: %w", step, err)
	}

	return db.UpdateSessionCheckpoint(ctx, d.DB, sessionID, step, string(status), column, string(wrapped), processedFiles, processedBytes)
}

// Finish records a session's final status, error and the given canResume
// flag. The Orchestrator passes canResume=false for completed and
// cancelled sessions and canResume=true for failed ones, so a failed
// session can be resumed from its last checkpoint.
func Finish(ctx context.Context, d *db.DB, sessionID string, status model.SessionStatus, sessionErr error, canResume bool) error {
	msg := ""
	if sessionErr != nil {
		msg = sessionErr.Error()
	}
	return db.FinishSession(ctx, d.DB, sessionID, string(status), time.Now().UTC().Format(time.RFC3339), msg, canResume)
}

// Load reconstructs an ImportSession from its persisted row.
func Load(ctx context.Context, d *db.DB, sessionID string) (model.ImportSession, error) {
	row, err := db.LoadSession(ctx, d.DB, sessionID)
	if err != nil {
		return model.ImportSession{}, err
	}
	return fromRow(row)
}

// Resumable lists sessions eligible for Orchestrator.Resume, per
// GetResumableSessions (§4.6).
func Resumable(ctx context.Context, d *db.DB) ([]model.ImportSession, error) {
	rows, err := db.ResumableSessions(ctx, d.DB)
	if err != nil {
		return nil, err
	}
	out := make([]model.ImportSession, 0, len(rows))
	for _, r := range rows {
		s, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DecodeStage unwraps a stage result blob into v, returning
// ErrStaleBlobVersion if the envelope's version doesn't match what this
// build writes.
func DecodeStage(blob string, v interface{}) error {
	if blob == "" {
		return nil
	}
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return fmt.Errorf("session: decode envelope: %w", err)
	}
	if env.V != blobVersion {
		return ErrStaleBlobVersion
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("session: decode stage payload: %w", err)
	}
	return nil
}

func fromRow(row db.SessionRow) (model.ImportSession, error) {
	var sourcePaths []string
	if row.SourcePaths != "" {
		if err := json.Unmarshal([]byte(row.SourcePaths), &sourcePaths); err != nil {
			return model.ImportSession{}, fmt.Errorf("session: decode source paths: %w", err)
		}
	}

	started, err := time.Parse(time.RFC3339, row.StartedAt)
	if err != nil {
		return model.ImportSession{}, fmt.Errorf("session: parse started_at: %w", err)
	}

	s := model.ImportSession{
		SessionID:            row.SessionID,
		LocID:                row.LocID,
		AddressState:         nullStr(row.AddressState),
		SubID:                nullStr(row.SubID),
		Status:               model.SessionStatus(row.Status),
		LastStep:             row.LastStep,
		SourcePaths:          sourcePaths,
		StartedAt:            started,
		CanResume:            row.CanResume,
		ScanResultJSON:       nullStr(row.ScanResult),
		HashResultsJSON:      nullStr(row.HashResults),
		CopyResultsJSON:      nullStr(row.CopyResults),
		ValidationResultJSON: nullStr(row.ValidationResults),
	}
	if row.Error.Valid {
		s.Error = row.Error.String
	}
	if row.CompletedAt.Valid && row.CompletedAt.String != "" {
		t, err := time.Parse(time.RFC3339, row.CompletedAt.String)
		if err == nil {
			s.CompletedAt = &t
		}
	}
	return s, nil
}

func nullStr(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}

// nullable converts an empty string to a SQL NULL so unset AddressState/SubID
// round-trip as "" rather than as a stored empty string.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
