package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestCreate_AndLoad(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	created, err := Create(ctx, d, "sess1", model.LocationInfo{LocID: "loc1"}, []string{"/src/a", "/src/b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != model.SessionScanning || !created.CanResume {
		t.Fatalf("unexpected created session: %+v", created)
	}

	loaded, err := Load(ctx, d, "sess1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.SourcePaths) != 2 || loaded.SourcePaths[1] != "/src/b" {
		t.Fatalf("unexpected source paths: %+v", loaded.SourcePaths)
	}
}

func TestCheckpoint_RoundTripsPayload(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	Create(ctx, d, "sess1", model.LocationInfo{LocID: "loc1"}, []string{"/src"})

	result := model.ScanResult{TotalFiles: 3, TotalBytes: 900}
	if err := Checkpoint(ctx, d, "sess1", 1, model.SessionHashing, "scan_result", result, 3, 900); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	loaded, err := Load(ctx, d, "sess1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Status != model.SessionHashing || loaded.LastStep != 1 {
		t.Fatalf("unexpected post-checkpoint state: %+v", loaded)
	}

	var decoded model.ScanResult
	if err := DecodeStage(loaded.ScanResultJSON, &decoded); err != nil {
		t.Fatalf("DecodeStage: %v", err)
	}
	if decoded.TotalFiles != 3 || decoded.TotalBytes != 900 {
		t.Fatalf("unexpected decoded scan result: %+v", decoded)
	}
}

func TestDecodeStage_StaleVersionRejected(t *testing.T) {
	var out model.ScanResult
	err := DecodeStage(`{"v":99,"payload":{}}`, &out)
	if err != ErrStaleBlobVersion {
		t.Fatalf("expected ErrStaleBlobVersion, got %v", err)
	}
}

func TestDecodeStage_EmptyBlobIsNoop(t *testing.T) {
	var out model.ScanResult
	if err := DecodeStage("", &out); err != nil {
		t.Fatalf("expected no error for empty blob, got %v", err)
	}
}

func TestFinish_MarksTerminalAndUnresumable(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	Create(ctx, d, "sess1", model.LocationInfo{LocID: "loc1"}, []string{"/src"})

	if err := Finish(ctx, d, "sess1", model.SessionCompleted, nil, false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	loaded, err := Load(ctx, d, "sess1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Status != model.SessionCompleted || loaded.CanResume {
		t.Fatalf("expected terminal non-resumable session, got %+v", loaded)
	}
	if loaded.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
}

func TestResumable_ExcludesFinished(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	Create(ctx, d, "sess1", model.LocationInfo{LocID: "loc1"}, []string{"/src"})
	Create(ctx, d, "sess2", model.LocationInfo{LocID: "loc2"}, []string{"/src2"})
	Finish(ctx, d, "sess2", model.SessionCompleted, nil, false)

	sessions, err := Resumable(ctx, d)
	if err != nil {
		t.Fatalf("Resumable: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "sess1" {
		t.Fatalf("expected only sess1 resumable, got %+v", sessions)
	}
}
