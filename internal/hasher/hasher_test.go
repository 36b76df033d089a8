package hasher

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"lukechampine.com/blake3"

	idb "github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

func openTestDB(t *testing.T) *idb.DB {
	t.Helper()
	d, err := idb.Open(context.Background(), filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func expectedHash(content []byte) string {
	h := blake3.New(32, nil)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:hashLen]
}

func TestHash_ComputesBLAKE3Prefix(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	dir := t.TempDir()

	content := []byte("hello world")
	path := writeFile(t, dir, "a.jpg", content)

	files := []model.ScannedFile{{ID: "1", Filename: "a.jpg", OriginalPath: path, Size: int64(len(content)), MediaType: model.MediaImage}}

	result, err := Hash(ctx, d, files, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if result.TotalHashed != 1 || result.TotalDuplicates != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Files[0].Hash) != hashLen {
		t.Fatalf("expected %d-char hash, got %q", hashLen, result.Files[0].Hash)
	}
	if result.Files[0].Hash != expectedHash(content) {
		t.Fatalf("hash mismatch: got %s want %s", result.Files[0].Hash, expectedHash(content))
	}
}

func TestHash_DetectsExistingDuplicate(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	dir := t.TempDir()

	content := []byte("duplicate content")
	path := writeFile(t, dir, "dup.jpg", content)
	hash := expectedHash(content)

	tx, _ := d.BeginTx(ctx, nil)
	idb.InsertMediaBatch(ctx, tx, "imgs", []idb.MediaRow{{Hash: hash, ArchivePath: "/archive/x.jpg", LocID: "loc1", ImportedAt: "2026-07-30T00:00:00Z"}})
	tx.Commit()

	files := []model.ScannedFile{{ID: "1", Filename: "dup.jpg", OriginalPath: path, MediaType: model.MediaImage}}
	result, err := Hash(ctx, d, files, Options{Workers: 1})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if result.TotalDuplicates != 1 || !result.Files[0].IsDuplicate || result.Files[0].DuplicateIn != "imgs" {
		t.Fatalf("expected duplicate detected in imgs, got %+v", result.Files[0])
	}
}

func TestHash_PerFileErrorDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	dir := t.TempDir()

	goodContent := []byte("ok")
	goodPath := writeFile(t, dir, "ok.jpg", goodContent)

	files := []model.ScannedFile{
		{ID: "1", Filename: "missing.jpg", OriginalPath: filepath.Join(dir, "missing.jpg"), MediaType: model.MediaImage},
		{ID: "2", Filename: "ok.jpg", OriginalPath: goodPath, MediaType: model.MediaImage},
	}

	result, err := Hash(ctx, d, files, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if result.TotalErrors != 1 || result.TotalHashed != 1 {
		t.Fatalf("expected 1 error and 1 success, got %+v", result)
	}
	if result.Files[0].HashError == "" {
		t.Fatal("expected HashError set for missing file")
	}
	if result.Files[1].Hash == "" {
		t.Fatal("expected successful hash for ok.jpg")
	}
}

func TestHash_SkipHashingProducesNullHashes(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	files := []model.ScannedFile{{ID: "1", Filename: "b.jpg", OriginalPath: "smb://nas/share/b.jpg", MediaType: model.MediaImage}}
	result, err := Hash(ctx, d, files, Options{SkipHashing: true})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if result.TotalHashed != 0 || result.Files[0].Hash != "" {
		t.Fatalf("expected null hash in skip mode, got %+v", result)
	}
}
