package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	d, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen_CreatesSchema(t *testing.T) {
	d := openTestDB(t)
	for _, table := range append(MediaTables(), "imports", "import_sessions", "jobs", "locations") {
		if _, err := d.ExecContext(context.Background(), "SELECT 1 FROM "+table+" LIMIT 1"); err != nil {
			t.Errorf("table %s not usable: %v", table, err)
		}
	}
}

func TestFindDuplicate_NotFound(t *testing.T) {
	d := openTestDB(t)
	_, found, err := FindDuplicate(context.Background(), d.DB, "e3b0c44298fc1c14")
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if found {
		t.Fatal("expected not found on empty db")
	}
}

func TestInsertMediaBatch_AndFindDuplicate(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}

	rows := []MediaRow{
		{
			Hash:             "aaaaaaaaaaaaaaaa",
			OriginalFilename: "IMG_0001.jpg",
			ArchiveFilename:  "aaaaaaaaaaaaaaaa.jpg",
			ArchivePath:      "/archive/locations/NY/loc1/data/org-img/aaaaaaaaaaaaaaaa.jpg",
			SourcePath:       "/src/IMG_0001.jpg",
			LocID:            "loc1",
			Importer:         "tester",
			ImportedAt:       "2026-07-30T00:00:00Z",
			FileSizeBytes:    1024,
		},
	}

	failed, err := InsertMediaBatch(ctx, tx, "imgs", rows)
	if err != nil {
		t.Fatalf("InsertMediaBatch: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("unexpected per-row failures: %v", failed)
	}

	if err := InsertImportRow(ctx, tx, "imp1", "loc1", "2026-07-30T00:00:00Z", "tester", "", ImportCounts{Images: 1}); err != nil {
		t.Fatalf("InsertImportRow: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	table, found, err := FindDuplicate(ctx, d.DB, "aaaaaaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if !found || table != "imgs" {
		t.Fatalf("expected found in imgs, got table=%q found=%v", table, found)
	}
}

func TestInsertMediaBatch_DuplicateHashIgnored(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	row := MediaRow{
		Hash:          "bbbbbbbbbbbbbbbb",
		ArchivePath:   "/archive/x.jpg",
		LocID:         "loc1",
		ImportedAt:    "2026-07-30T00:00:00Z",
		FileSizeBytes: 10,
	}

	tx, _ := d.BeginTx(ctx, nil)
	if _, err := InsertMediaBatch(ctx, tx, "imgs", []MediaRow{row}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	tx.Commit()

	tx2, _ := d.BeginTx(ctx, nil)
	failed, err := InsertMediaBatch(ctx, tx2, "imgs", []MediaRow{row})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("INSERT OR IGNORE should not report a failure for a duplicate key, got %v", failed)
	}
	tx2.Commit()

	var count int
	if err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM imgs WHERE imghash = ?", row.Hash).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row after duplicate insert, got %d", count)
	}
}

func TestAssignHeroIfMissing_OnlySetsOnce(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	if err := AssignHeroIfMissing(ctx, d.DB, "loc1", "hash1"); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if err := AssignHeroIfMissing(ctx, d.DB, "loc1", "hash2"); err != nil {
		t.Fatalf("second assign: %v", err)
	}

	var hero string
	if err := d.QueryRowContext(ctx, "SELECT hero_image_hash FROM locations WHERE locid = ?", "loc1").Scan(&hero); err != nil {
		t.Fatalf("query hero: %v", err)
	}
	if hero != "hash1" {
		t.Fatalf("expected hero to stay hash1, got %q", hero)
	}
}
