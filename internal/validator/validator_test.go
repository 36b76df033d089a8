package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hardware"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

func writeArchiveFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestValidate_MatchingHashIsValid(t *testing.T) {
	dir := t.TempDir()
	path := writeArchiveFile(t, dir, "e3b0c44298fc1c14.jpg", []byte("archived content"))

	files := []model.CopiedFile{
		{HashedFile: model.HashedFile{Hash: "aeaf77195c9d8c14"}, ArchivePath: path},
	}
	// Recompute the real hash so the test doesn't hardcode BLAKE3 output.
	files[0].Hash = realHash(t, path)

	result, err := Validate(context.Background(), files, Options{Profile: hardware.Static(2, 2, 1)})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.TotalValid != 1 || result.TotalInvalid != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.Files[0].IsValid {
		t.Fatal("expected file marked valid")
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected archive file to remain after successful validation: %v", statErr)
	}
}

func TestValidate_MismatchRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeArchiveFile(t, dir, "badfile.jpg", []byte("archived content"))

	files := []model.CopiedFile{
		{HashedFile: model.HashedFile{Hash: "0000000000000000"}, ArchivePath: path},
	}

	result, err := Validate(context.Background(), files, Options{Profile: hardware.Static(2, 2, 1)})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.TotalInvalid != 1 || result.TotalRolledBack != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("expected mismatched archive file to be rolled back (unlinked)")
	}
}

func TestValidate_DisableAutoRollbackKeepsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeArchiveFile(t, dir, "badfile2.jpg", []byte("archived content"))

	files := []model.CopiedFile{
		{HashedFile: model.HashedFile{Hash: "0000000000000000"}, ArchivePath: path},
	}

	result, err := Validate(context.Background(), files, Options{Profile: hardware.Static(2, 2, 1), DisableAutoRollback: true})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.TotalRolledBack != 0 {
		t.Fatalf("expected no rollback when disabled, got %+v", result)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatal("expected file to remain when auto-rollback disabled")
	}
}

func TestValidate_SkipsFilesWithCopyError(t *testing.T) {
	files := []model.CopiedFile{
		{HashedFile: model.HashedFile{}, CopyError: "disk full"},
	}
	result, err := Validate(context.Background(), files, Options{Profile: hardware.Static(2, 2, 1)})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.TotalValid != 0 || result.TotalInvalid != 0 {
		t.Fatalf("expected copy-errored file skipped entirely, got %+v", result)
	}
}

func realHash(t *testing.T, path string) string {
	t.Helper()
	h, err := rehash(context.Background(), path)
	if err != nil {
		t.Fatalf("rehash: %v", err)
	}
	return h
}
