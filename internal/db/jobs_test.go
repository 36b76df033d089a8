package db

import (
	"context"
	"database/sql"
	"testing"
)

func TestInsertJobs_AndPeek(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	tx, _ := d.BeginTx(ctx, nil)
	jobs := []JobRow{
		{JobID: "j1", Queue: "thumbnail", Priority: "NORMAL", Payload: `{"hash":"aaaa"}`, Status: "pending", CreatedAt: "2026-07-30T00:00:00Z"},
		{JobID: "j2", Queue: "thumbnail", Priority: "NORMAL", Payload: `{"hash":"bbbb"}`, DependsOn: sql.NullString{String: "j1", Valid: true}, Status: "pending", CreatedAt: "2026-07-30T00:00:01Z"},
	}
	if err := InsertJobs(ctx, tx, jobs); err != nil {
		t.Fatalf("InsertJobs: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	peeked, err := PeekJobs(ctx, d.DB, "thumbnail", "pending", 10)
	if err != nil {
		t.Fatalf("PeekJobs: %v", err)
	}
	if len(peeked) != 2 || peeked[0].JobID != "j1" {
		t.Fatalf("unexpected peek result: %+v", peeked)
	}
	if !peeked[1].DependsOn.Valid || peeked[1].DependsOn.String != "j1" {
		t.Fatalf("expected j2 to depend on j1, got %+v", peeked[1])
	}

	counts, err := CountJobsByStatus(ctx, d.DB, "thumbnail")
	if err != nil {
		t.Fatalf("CountJobsByStatus: %v", err)
	}
	if counts["pending"] != 2 {
		t.Fatalf("expected 2 pending jobs, got %+v", counts)
	}
}
