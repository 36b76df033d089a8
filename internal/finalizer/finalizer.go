// Package finalizer implements the Finalizer stage: materializing validated
// files into the archive database inside a single transaction, then
// enqueueing downstream jobs (spec.md §4.5).
package finalizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/queue"
)

// Options configures one Finalize call.
type Options struct {
	Location model.LocationInfo
	Importer string
	Notes    string
	Logger   *zap.SugaredLogger
}

// Finalize inserts the imports row and every valid media row in a single
// transaction, then enqueues downstream jobs outside it (§4.5).
func Finalize(ctx context.Context, d *db.DB, q *queue.Queue, files []model.ValidatedFile, opts Options) (model.FinalizationResult, error) {
	start := time.Now()
	if opts.Logger != nil {
		opts.Logger.Infow("finalizer: stage starting", "files", len(files), "locid", opts.Location.LocID)
	}

	byType := make(map[model.MediaType][]model.ValidatedFile)
	for _, f := range files {
		if f.CopyError != "" || f.ArchivePath == "" || !f.IsValid {
			continue
		}
		byType[f.MediaType] = append(byType[f.MediaType], f)
	}

	counts := db.ImportCounts{
		Images:    len(byType[model.MediaImage]),
		Videos:    len(byType[model.MediaVideo]),
		Documents: len(byType[model.MediaDocument]),
		Maps:      len(byType[model.MediaMap]),
	}

	importID := uuid.NewString()
	importedAt := time.Now().UTC().Format(time.RFC3339)

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return model.FinalizationResult{}, fmt.Errorf("finalizer: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := db.InsertImportRow(ctx, tx, importID, opts.Location.LocID, importedAt, opts.Importer, opts.Notes, counts); err != nil {
		return model.FinalizationResult{}, err
	}

	finalized := make([]model.FinalizedFile, len(files))
	errByIndex := make(map[int]error)
	indexByHash := make(map[string][]int)

	for mt, typedFiles := range byType {
		table := mt.TableFor()
		rows := make([]db.MediaRow, 0, len(typedFiles))
		for _, f := range typedFiles {
			rows = append(rows, db.MediaRow{
				Hash:             f.Hash,
				OriginalFilename: f.Filename,
				ArchiveFilename:  f.Filename,
				ArchivePath:      f.ArchivePath,
				SourcePath:       f.OriginalPath,
				LocID:            opts.Location.LocID,
				SubID:            opts.Location.SubID,
				Importer:         opts.Importer,
				ImportedAt:       importedAt,
				FileSizeBytes:    f.Size,
			})
			indexByHash[f.Hash] = append(indexByHash[f.Hash], indexOf(files, f))
		}

		failed, err := db.InsertMediaBatch(ctx, tx, table, rows)
		if err != nil {
			return model.FinalizationResult{}, err
		}
		for hash, rowErr := range failed {
			for _, idx := range indexByHash[hash] {
				errByIndex[idx] = rowErr
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return model.FinalizationResult{}, fmt.Errorf("finalizer: commit transaction: %w", err)
	}

	var totalFinalized, totalErrors, jobsQueued int
	var lastExifID string
	var hasDocs, hasImages bool
	var heroCandidate string

	for i, f := range files {
		ff := model.FinalizedFile{ValidatedFile: f}
		if f.CopyError != "" || f.ArchivePath == "" || !f.IsValid {
			ff.FinalizeError = "not eligible for finalization"
			finalized[i] = ff
			totalErrors++
			continue
		}
		if rowErr, failed := errByIndex[i]; failed {
			ff.FinalizeError = rowErr.Error()
			finalized[i] = ff
			totalErrors++
			if opts.Logger != nil {
				opts.Logger.Warnw("media row insert failed", "hash", f.Hash, "error", rowErr)
			}
			continue
		}

		ff.DBRecordID = f.Hash
		finalized[i] = ff
		totalFinalized++

		if f.MediaType == model.MediaDocument {
			hasDocs = true
		}
		if f.MediaType == model.MediaImage {
			hasImages = true
			if heroCandidate == "" {
				heroCandidate = f.Hash
			}
		}

		jobs, err := q.EnqueuePerFile(ctx, ff)
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warnw("job enqueue failed for finalized file", "hash", f.Hash, "error", err)
			}
			continue // job enqueue failures are non-fatal per §7
		}
		jobsQueued += jobs.JobCount
		if jobs.ExifToolID != "" {
			lastExifID = jobs.ExifToolID
		}
	}

	if totalFinalized > 0 {
		n, err := q.EnqueuePerLocation(ctx, opts.Location.LocID, lastExifID, hasDocs, hasImages)
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warnw("per-location job enqueue failed", "locid", opts.Location.LocID, "error", err)
			}
		} else {
			jobsQueued += n
		}
	}

	if heroCandidate != "" {
		// Best-effort hero-image assignment; failure is non-fatal (§4.5, §7).
		db.AssignHeroIfMissing(ctx, d.DB, opts.Location.LocID, heroCandidate)
	}

	if opts.Logger != nil {
		opts.Logger.Infow("finalizer: stage complete", "finalized", totalFinalized, "errors", totalErrors, "jobs_queued", jobsQueued)
	}

	return model.FinalizationResult{
		Files:          finalized,
		TotalFinalized: totalFinalized,
		TotalErrors:    totalErrors,
		JobsQueued:     jobsQueued,
		ImportRecordID: importID,
		FinalizeTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func indexOf(files []model.ValidatedFile, target model.ValidatedFile) int {
	for i, f := range files {
		if f.ID == target.ID {
			return i
		}
	}
	return -1
}

