package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hardware"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hasher"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/scanner"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/session"
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

func writeSourceFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

// TestImport_SingleLocalImage mirrors spec.md's S1 scenario: one local
// image flows through all five stages and lands in the database.
func TestImport_SingleLocalImage(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	archiveBase := t.TempDir()
	srcDir := t.TempDir()

	writeSourceFile(t, srcDir, "photo.jpg", []byte("a single photo"))

	o := New(d, archiveBase, hardware.Static(2, 2, 1))
	loc := model.LocationInfo{LocID: "aaaaaaaaaaaaaaaa", AddressState: "NY"}

	var events []model.ProgressEvent
	result := o.Import(ctx, []string{srcDir}, loc, Options{
		Importer:   "tester",
		OnProgress: func(e model.ProgressEvent) { events = append(events, e) },
	})

	if result.Status != model.SessionCompleted {
		t.Fatalf("expected completed session, got %+v", result)
	}
	if result.FinalizationResult == nil || result.FinalizationResult.TotalFinalized != 1 {
		t.Fatalf("expected 1 finalized file, got %+v", result.FinalizationResult)
	}
	if len(events) == 0 {
		t.Fatal("expected progress events to be emitted")
	}

	var imgCount int
	if err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM imgs").Scan(&imgCount); err != nil {
		t.Fatalf("count imgs: %v", err)
	}
	if imgCount != 1 {
		t.Fatalf("expected 1 imgs row, got %d", imgCount)
	}

	sess, err := o.GetStatus(ctx, result.SessionID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if sess.Status != model.SessionCompleted || sess.CanResume {
		t.Fatalf("expected terminal, non-resumable session, got %+v", sess)
	}
}

// TestImport_DuplicateAcrossImports covers spec.md's S2 duplicate case: a
// file identical to one a previous import already archived is detected as
// a duplicate by the second import and never copied or finalized.
func TestImport_DuplicateAcrossImports(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	archiveBase := t.TempDir()
	srcDir := t.TempDir()

	content := []byte("identical content")
	writeSourceFile(t, srcDir, "a.jpg", content)

	o := New(d, archiveBase, hardware.Static(2, 2, 1))
	loc := model.LocationInfo{LocID: "bbbbbbbbbbbbbbbb", AddressState: "CA"}

	first := o.Import(ctx, []string{srcDir}, loc, Options{Importer: "tester"})
	if first.Status != model.SessionCompleted {
		t.Fatalf("first import failed: %+v", first)
	}

	srcDir2 := t.TempDir()
	writeSourceFile(t, srcDir2, "a-copy.jpg", content)

	second := o.Import(ctx, []string{srcDir2}, loc, Options{Importer: "tester"})
	if second.Status != model.SessionCompleted {
		t.Fatalf("second import failed: %+v", second)
	}
	if second.HashResult == nil || second.HashResult.TotalDuplicates != 1 {
		t.Fatalf("expected second import to detect the duplicate, got %+v", second.HashResult)
	}
	if second.FinalizationResult.TotalFinalized != 0 {
		t.Fatalf("expected duplicate excluded from finalization, got %+v", second.FinalizationResult)
	}

	var imgCount int
	if err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM imgs").Scan(&imgCount); err != nil {
		t.Fatalf("count imgs: %v", err)
	}
	if imgCount != 1 {
		t.Fatalf("expected only the first copy's row, got %d", imgCount)
	}
}

// TestImport_LockContentionFailsFast ensures a second concurrent Import on
// the same location fails immediately rather than queueing (§4.6, §4.7).
func TestImport_LockContentionFailsFast(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	archiveBase := t.TempDir()
	o := New(d, archiveBase, hardware.Static(2, 2, 1))
	loc := model.LocationInfo{LocID: "cccccccccccccccc"}

	if err := o.locks.Acquire(loc.LocID, "holder-session"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer o.locks.Release(loc.LocID, "holder-session")

	result := o.Import(ctx, []string{t.TempDir()}, loc, Options{})
	if result.Status != model.SessionFailed {
		t.Fatalf("expected failed status on lock contention, got %+v", result)
	}
	if result.Error == "" {
		t.Fatal("expected a lock contention error message")
	}
}

// TestResume_ContinuesFromLastCheckpoint verifies Resume restarts from the
// persisted lastStep rather than rescanning from zero.
func TestResume_ContinuesFromLastCheckpoint(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	archiveBase := t.TempDir()
	srcDir := t.TempDir()
	writeSourceFile(t, srcDir, "a.jpg", []byte("resumable content"))

	o := New(d, archiveBase, hardware.Static(2, 2, 1))
	loc := model.LocationInfo{LocID: "dddddddddddddddd", AddressState: "TX"}

	// Manually drive a session through scan+hash checkpoints, then simulate
	// a crash before copy by never calling Finish.
	sessionID := "resume-test-session"
	if _, err := session.Create(ctx, d, sessionID, loc, []string{srcDir}); err != nil {
		t.Fatalf("creating test session: %v", err)
	}
	sr, _, err := scanner.Scan([]string{srcDir}, scanner.Options{ArchiveBase: archiveBase})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if err := session.Checkpoint(ctx, d, sessionID, 1, model.SessionHashing, "scan_result", sr, 0, 0); err != nil {
		t.Fatalf("scan checkpoint: %v", err)
	}
	hr, err := hasher.Hash(ctx, d, sr.Files, hasher.Options{Workers: 1})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := session.Checkpoint(ctx, d, sessionID, 2, model.SessionCopying, "hash_results", hr, sr.TotalFiles, sr.TotalBytes); err != nil {
		t.Fatalf("hash checkpoint: %v", err)
	}

	result := o.Resume(ctx, sessionID, Options{Importer: "tester"})
	if result.Status != model.SessionCompleted {
		t.Fatalf("expected resumed import to complete, got %+v", result)
	}
	if result.FinalizationResult == nil || result.FinalizationResult.TotalFinalized != 1 {
		t.Fatalf("expected 1 finalized file after resume, got %+v", result.FinalizationResult)
	}
	if result.ScanResult == nil || len(result.ScanResult.Files) != 1 || result.ScanResult.Files[0].ID != sr.Files[0].ID {
		t.Fatalf("expected resume to reuse the checkpointed scan result, got %+v", result.ScanResult)
	}
}

// TestResume_PreservesSubLocation verifies Resume reconstructs the full
// LocationInfo (SubID and AddressState included) from the persisted
// session row rather than dropping the sub-location, so a resumed
// sub-location import's copied files land under the same sloc-<SUBID>
// path segment a from-scratch import would use (§8 property 4).
func TestResume_PreservesSubLocation(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	archiveBase := t.TempDir()
	srcDir := t.TempDir()
	writeSourceFile(t, srcDir, "b.jpg", []byte("sub-location content"))

	o := New(d, archiveBase, hardware.Static(2, 2, 1))
	loc := model.LocationInfo{LocID: "eeeeeeeeeeeeeeee", AddressState: "NY", SubID: "ffffffffffffffff"}

	sessionID := "resume-sub-session"
	if _, err := session.Create(ctx, d, sessionID, loc, []string{srcDir}); err != nil {
		t.Fatalf("creating test session: %v", err)
	}

	result := o.Resume(ctx, sessionID, Options{Importer: "tester"})
	if result.Status != model.SessionCompleted {
		t.Fatalf("expected resumed sub-location import to complete, got %+v", result)
	}
	if result.CopyResult == nil || len(result.CopyResult.Files) != 1 {
		t.Fatalf("expected 1 copied file, got %+v", result.CopyResult)
	}
	gotPath := result.CopyResult.Files[0].ArchivePath
	wantSegment := "sloc-" + loc.SubID
	if !strings.Contains(gotPath, wantSegment) {
		t.Fatalf("expected archive path to contain %q (sub-location preserved on resume), got %q", wantSegment, gotPath)
	}
}

func TestCancel_StopsBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	archiveBase := t.TempDir()
	o := New(d, archiveBase, hardware.Static(2, 2, 1))
	loc := model.LocationInfo{LocID: "eeeeeeeeeeeeeeee"}

	o.Cancel()
	// A second Cancel must not panic (idempotent close).
	o.Cancel()

	result := o.Import(ctx, []string{t.TempDir()}, loc, Options{})
	if result.Status != model.SessionCancelled && result.Status != model.SessionCompleted {
		t.Fatalf("expected cancelled or trivially-completed (empty dir) status, got %+v", result)
	}
}
