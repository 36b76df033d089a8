// Package db owns the SQLite surface consumed by the import pipeline
// (spec.md §6): the imports/imgs/vids/docs/maps media tables,
// import_sessions checkpoints, and the jobs queue table. Schema migrations
// beyond this core's own idempotent CREATE TABLE statements are out of
// scope (spec.md §1); this mirrors the teacher's own initDB pattern.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a *sql.DB opened against the archive's SQLite database. Stages
// 1-4 only read it; only the Finalizer writes, and only inside one
// transaction per spec.md §5.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the core's schema.
func Open(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}

	// A single SQLite connection avoids "database is locked" errors under
	// our own bounded-concurrency worker pools; the teacher's codebase
	// relies on the same implicit serialization via one *sql.DB.
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB}
	if err := d.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS imports (
	import_id TEXT PRIMARY KEY,
	locid TEXT NOT NULL,
	import_date TEXT NOT NULL,
	auth_imp TEXT,
	img_count INTEGER NOT NULL DEFAULT 0,
	vid_count INTEGER NOT NULL DEFAULT 0,
	doc_count INTEGER NOT NULL DEFAULT 0,
	map_count INTEGER NOT NULL DEFAULT 0,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS imgs (
	imghash TEXT PRIMARY KEY,
	original_filename TEXT,
	archive_filename TEXT,
	archive_path TEXT NOT NULL,
	source_path TEXT,
	locid TEXT NOT NULL,
	subid TEXT,
	importer TEXT,
	imported_at TEXT,
	file_size_bytes INTEGER,
	hidden INTEGER NOT NULL DEFAULT 0,
	hidden_reason TEXT
);

CREATE TABLE IF NOT EXISTS vids (
	vidhash TEXT PRIMARY KEY,
	original_filename TEXT,
	archive_filename TEXT,
	archive_path TEXT NOT NULL,
	source_path TEXT,
	locid TEXT NOT NULL,
	subid TEXT,
	importer TEXT,
	imported_at TEXT,
	file_size_bytes INTEGER,
	hidden INTEGER NOT NULL DEFAULT 0,
	hidden_reason TEXT
);

CREATE TABLE IF NOT EXISTS docs (
	dochash TEXT PRIMARY KEY,
	original_filename TEXT,
	archive_filename TEXT,
	archive_path TEXT NOT NULL,
	source_path TEXT,
	locid TEXT NOT NULL,
	subid TEXT,
	importer TEXT,
	imported_at TEXT,
	file_size_bytes INTEGER,
	hidden INTEGER NOT NULL DEFAULT 0,
	hidden_reason TEXT
);

CREATE TABLE IF NOT EXISTS maps (
	maphash TEXT PRIMARY KEY,
	original_filename TEXT,
	archive_filename TEXT,
	archive_path TEXT NOT NULL,
	source_path TEXT,
	locid TEXT NOT NULL,
	subid TEXT,
	importer TEXT,
	imported_at TEXT,
	file_size_bytes INTEGER,
	hidden INTEGER NOT NULL DEFAULT 0,
	hidden_reason TEXT
);

CREATE TABLE IF NOT EXISTS import_sessions (
	session_id TEXT PRIMARY KEY,
	locid TEXT NOT NULL,
	address_state TEXT,
	subid TEXT,
	status TEXT NOT NULL,
	source_paths TEXT,
	total_files INTEGER NOT NULL DEFAULT 0,
	processed_files INTEGER NOT NULL DEFAULT 0,
	total_bytes INTEGER NOT NULL DEFAULT 0,
	processed_bytes INTEGER NOT NULL DEFAULT 0,
	started_at TEXT,
	completed_at TEXT,
	error TEXT,
	can_resume INTEGER NOT NULL DEFAULT 1,
	last_step INTEGER NOT NULL DEFAULT 0,
	scan_result TEXT,
	hash_results TEXT,
	copy_results TEXT,
	validation_results TEXT
);

CREATE TABLE IF NOT EXISTS jobs (
	job_id TEXT PRIMARY KEY,
	queue TEXT NOT NULL,
	priority TEXT NOT NULL,
	payload TEXT NOT NULL,
	depends_on TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
	locid TEXT PRIMARY KEY,
	hero_image_hash TEXT
);

CREATE INDEX IF NOT EXISTS idx_imgs_locid ON imgs(locid);
CREATE INDEX IF NOT EXISTS idx_vids_locid ON vids(locid);
CREATE INDEX IF NOT EXISTS idx_docs_locid ON docs(locid);
CREATE INDEX IF NOT EXISTS idx_maps_locid ON maps(locid);
CREATE INDEX IF NOT EXISTS idx_jobs_depends_on ON jobs(depends_on);
`

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

// MediaTables returns the four media tables in a fixed order, used by the
// Hasher's duplicate lookup (§4.2) and the maintenance orphan scan.
func MediaTables() []string {
	return []string{"imgs", "vids", "docs", "maps"}
}

// hashColumn returns the hash primary-key column name for a media table.
func hashColumn(table string) string {
	switch table {
	case "imgs":
		return "imghash"
	case "vids":
		return "vidhash"
	case "docs":
		return "dochash"
	case "maps":
		return "maphash"
	default:
		return "hash"
	}
}
