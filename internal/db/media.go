package db

import (
	"context"
	"database/sql"
	"fmt"
)

// FindDuplicate looks up hash across all four media tables and returns the
// table name it was found in, if any (spec.md §4.2).
func FindDuplicate(ctx context.Context, q Queryer, hash string) (table string, found bool, err error) {
	for _, t := range MediaTables() {
		var exists int
		query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? LIMIT 1", t, hashColumn(t))
		row := q.QueryRowContext(ctx, query, hash)
		if scanErr := row.Scan(&exists); scanErr == nil {
			return t, true, nil
		} else if scanErr != sql.ErrNoRows {
			return "", false, fmt.Errorf("db: lookup duplicate in %s: %w", t, scanErr)
		}
	}
	return "", false, nil
}

// FindDuplicates batches FindDuplicate for a set of hashes in one pass per
// table, to bound query count on large batches.
func FindDuplicates(ctx context.Context, q Queryer, hashes []string) (map[string]string, error) {
	result := make(map[string]string, len(hashes))
	if len(hashes) == 0 {
		return result, nil
	}

	for _, t := range MediaTables() {
		placeholders := make([]interface{}, len(hashes))
		qMarks := ""
		for i, h := range hashes {
			if i > 0 {
				qMarks += ","
			}
			qMarks += "?"
			placeholders[i] = h
		}
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)", hashColumn(t), t, hashColumn(t), qMarks)
		rows, err := q.QueryContext(ctx, query, placeholders...)
		if err != nil {
			return nil, fmt.Errorf("db: batch lookup in %s: %w", t, err)
		}
		for rows.Next() {
			var h string
			if err := rows.Scan(&h); err != nil {
				rows.Close()
				return nil, fmt.Errorf("db: scan duplicate hash from %s: %w", t, err)
			}
			if _, already := result[h]; !already {
				result[h] = t
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("db: iterate duplicates in %s: %w", t, err)
		}
	}
	return result, nil
}

// MediaRow is one row to insert into a media table during finalization
// (§4.5).
type MediaRow struct {
	Hash             string
	OriginalFilename string
	ArchiveFilename  string
	ArchivePath      string
	SourcePath       string
	LocID            string
	SubID            string
	Importer         string
	ImportedAt       string
	FileSizeBytes    int64
}

// Queryer is the subset of *sql.DB / *sql.Tx used for read queries, so
// FindDuplicate(s) can run against either a live connection (stages 1-4,
// read-only per §5) or an in-flight transaction (Finalizer).
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// InsertMediaBatch inserts rows into table as a single multi-row INSERT.
// On failure it falls back to per-row INSERTs inside the same transaction
// so a single bad row doesn't block its siblings (§4.5 step 2). It returns
// the hashes that were NOT inserted (because of a per-row failure) paired
// with their error.
func InsertMediaBatch(ctx context.Context, tx *sql.Tx, table string, rows []MediaRow) (failed map[string]error, err error) {
	if len(rows) == 0 {
		return nil, nil
	}

	col := hashColumn(table)
	query := fmt.Sprintf(
		`INSERT OR IGNORE INTO %s (%s, original_filename, archive_filename, archive_path, source_path, locid, subid, importer, imported_at, file_size_bytes) VALUES `,
		table, col,
	)
	args := make([]interface{}, 0, len(rows)*10)
	for i, r := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, r.Hash, r.OriginalFilename, r.ArchiveFilename, r.ArchivePath, r.SourcePath, r.LocID, nullable(r.SubID), r.Importer, r.ImportedAt, r.FileSizeBytes)
	}

	if _, batchErr := tx.ExecContext(ctx, query, args...); batchErr == nil {
		return nil, nil
	}

	// Batch failed: retry row by row inside the same transaction so
	// individual offenders can be isolated without aborting the whole
	// import (§4.5 step 2).
	failed = make(map[string]error)
	single := fmt.Sprintf(
		`INSERT OR IGNORE INTO %s (%s, original_filename, archive_filename, archive_path, source_path, locid, subid, importer, imported_at, file_size_bytes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		table, col,
	)
	stmt, prepErr := tx.PrepareContext(ctx, single)
	if prepErr != nil {
		return nil, fmt.Errorf("db: prepare per-row insert into %s: %w", table, prepErr)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, rowErr := stmt.ExecContext(ctx, r.Hash, r.OriginalFilename, r.ArchiveFilename, r.ArchivePath, r.SourcePath, r.LocID, nullable(r.SubID), r.Importer, r.ImportedAt, r.FileSizeBytes); rowErr != nil {
			failed[r.Hash] = rowErr
		}
	}
	return failed, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ImportCounts tallies how many rows of each media type an import batch
// produced, for the imports row (§6).
type ImportCounts struct {
	Images    int
	Videos    int
	Documents int
	Maps      int
}

// InsertImportRow inserts the single imports row for a batch (§4.5 step 1).
func InsertImportRow(ctx context.Context, tx *sql.Tx, importID, locid, importedAt, importer, notes string, counts ImportCounts) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO imports (import_id, locid, import_date, auth_imp, img_count, vid_count, doc_count, map_count, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		importID, locid, importedAt, importer, counts.Images, counts.Videos, counts.Documents, counts.Maps, notes,
	)
	if err != nil {
		return fmt.Errorf("db: insert imports row: %w", err)
	}
	return nil
}

// AssignHeroIfMissing sets a location's hero image if it has none, the
// best-effort operation from spec.md §4.5/§9. It runs outside the main
// finalize transaction (non-fatal on failure).
func AssignHeroIfMissing(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, locid, imageHash string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO locations (locid, hero_image_hash) VALUES (?, ?)
		ON CONFLICT(locid) DO UPDATE SET hero_image_hash = excluded.hero_image_hash WHERE locations.hero_image_hash IS NULL`,
		locid, imageHash)
	return err
}
