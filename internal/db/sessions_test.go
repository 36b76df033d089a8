package db

import (
	"context"
	"errors"
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	s := SessionRow{
		SessionID:   "sess1",
		LocID:       "loc1",
		Status:      "scanning",
		SourcePaths: `["/src"]`,
		TotalFiles:  0,
		StartedAt:   "2026-07-30T00:00:00Z",
		CanResume:   true,
	}
	if err := InsertSession(ctx, d.DB, s); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	if err := UpdateSessionCheckpoint(ctx, d.DB, "sess1", 1, "hashing", "scan_result", `{"v":1,"totalFiles":3}`, 0, 0); err != nil {
		t.Fatalf("UpdateSessionCheckpoint: %v", err)
	}

	loaded, err := LoadSession(ctx, d.DB, "sess1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.Status != "hashing" || loaded.LastStep != 1 {
		t.Fatalf("unexpected checkpoint state: %+v", loaded)
	}
	if !loaded.ScanResult.Valid || loaded.ScanResult.String != `{"v":1,"totalFiles":3}` {
		t.Fatalf("expected scan_result persisted, got %+v", loaded.ScanResult)
	}

	if err := FinishSession(ctx, d.DB, "sess1", "completed", "2026-07-30T01:00:00Z", "", false); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	loaded, err = LoadSession(ctx, d.DB, "sess1")
	if err != nil {
		t.Fatalf("LoadSession after finish: %v", err)
	}
	if loaded.Status != "completed" || loaded.CanResume {
		t.Fatalf("expected terminal non-resumable session, got %+v", loaded)
	}
}

func TestLoadSession_NotFound(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	_, err := LoadSession(ctx, d.DB, "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResumableSessions_FiltersTerminal(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	InsertSession(ctx, d.DB, SessionRow{SessionID: "a", LocID: "loc1", Status: "copying", StartedAt: "2026-07-30T00:00:00Z", CanResume: true})
	InsertSession(ctx, d.DB, SessionRow{SessionID: "b", LocID: "loc2", Status: "scanning", StartedAt: "2026-07-30T00:01:00Z", CanResume: true})
	FinishSession(ctx, d.DB, "b", "completed", "2026-07-30T00:02:00Z", "", false)

	resumable, err := ResumableSessions(ctx, d.DB)
	if err != nil {
		t.Fatalf("ResumableSessions: %v", err)
	}
	if len(resumable) != 1 || resumable[0].SessionID != "a" {
		t.Fatalf("expected only session a, got %+v", resumable)
	}
}
