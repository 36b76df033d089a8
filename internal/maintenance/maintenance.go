// Package maintenance implements the small standalone repair operations
// the original product exposes as maintenance subcommands: orphan-file
// detection and missing-hero-image backfill (SPEC_FULL.md §C.5), grounded
// on the teacher's resume.go FindResumeStateFiles pattern of a plain
// filepath.Walk/Glob sweep over a destination tree.
package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/archive"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
)

// OrphanFile is an archive-tree file whose path parses as a valid layout
// entry but has no matching row in any media table.
type OrphanFile struct {
	Path      string
	LocID     string
	MediaType string
	Hash      string
}

// FindOrphanFiles walks archiveBase's locations/ tree and reports every
// file that parses under the layout grammar but is missing from all four
// media tables — the inverse of the "every archive file has exactly one
// media row" property (spec.md §8 property 2).
func FindOrphanFiles(ctx context.Context, d *db.DB, archiveBase string) ([]OrphanFile, error) {
	root := filepath.Join(archiveBase, "locations")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var orphans []OrphanFile
	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		parsed, err := archive.Parse(archiveBase, path)
		if err != nil {
			return nil // not a layout-shaped file (stray temp file, etc); skip
		}

		_, found, err := db.FindDuplicate(ctx, d.DB, parsed.Hash)
		if err != nil {
			return fmt.Errorf("maintenance: lookup %s: %w", parsed.Hash, err)
		}
		if !found {
			orphans = append(orphans, OrphanFile{
				Path:      path,
				LocID:     parsed.LocID,
				MediaType: string(parsed.MediaType),
				Hash:      parsed.Hash,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// AssignMissingHeroImages finds every location with at least one imgs row
// and no hero_image_hash set, and assigns the earliest-imported image as
// hero. This is the same best-effort operation the Finalizer runs inline
// (§4.5), exposed standalone so it can be re-run after a crash between
// commit and hero assignment (§9).
func AssignMissingHeroImages(ctx context.Context, d *db.DB) (int, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT i.locid, i.imghash
		FROM imgs i
		WHERE i.locid NOT IN (
			SELECT locid FROM locations WHERE hero_image_hash IS NOT NULL
		)
		AND i.imported_at = (
			SELECT MIN(i2.imported_at) FROM imgs i2 WHERE i2.locid = i.locid
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("maintenance: query hero candidates: %w", err)
	}
	defer rows.Close()

	type candidate struct{ locid, hash string }
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.locid, &c.hash); err != nil {
			return 0, fmt.Errorf("maintenance: scan hero candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	assigned := 0
	for _, c := range candidates {
		if err := db.AssignHeroIfMissing(ctx, d.DB, c.locid, c.hash); err != nil {
			return assigned, fmt.Errorf("maintenance: assign hero for %s: %w", c.locid, err)
		}
		assigned++
	}
	return assigned, nil
}
