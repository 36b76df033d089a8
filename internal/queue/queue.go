// Package queue implements JobQueue: enqueue-only job records with the
// per-file and per-location dependency graph the Finalizer produces
// (spec.md §4.5, §6). Nothing in this package's scope dequeues or runs a
// job; that belongs to a downstream worker outside this core.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

// Queue enqueues jobs against the archive database.
type Queue struct {
	d *db.DB
}

// New wraps an open database handle.
func New(d *db.DB) *Queue {
	return &Queue{d: d}
}

// Enqueue inserts a single job and returns its assigned id.
func (q *Queue) Enqueue(ctx context.Context, queue model.JobType, priority model.Priority, payload interface{}, dependsOn string) (string, error) {
	row, err := buildJobRow(queue, priority, payload, dependsOn)
	if err != nil {
		return "", err
	}
	if err := db.InsertJob(ctx, q.d.DB, row); err != nil {
		return "", err
	}
	return row.JobID, nil
}

// buildJobRow constructs (without inserting) one job row, assigning it a
// fresh id so callers can wire later rows' dependsOn before anything is
// written to the database.
func buildJobRow(queue model.JobType, priority model.Priority, payload interface{}, dependsOn string) (db.JobRow, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return db.JobRow{}, fmt.Errorf("queue: marshal payload: %w", err)
	}
	row := db.JobRow{
		JobID:     uuid.NewString(),
		Queue:     string(queue),
		Priority:  string(priority),
		Payload:   string(raw),
		Status:    "pending",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if dependsOn != "" {
		row.DependsOn.String = dependsOn
		row.DependsOn.Valid = true
	}
	return row, nil
}

// FilePayload is the JSON payload shape for per-file jobs.
type FilePayload struct {
	Hash        string `json:"hash"`
	ArchivePath string `json:"archivePath"`
	MediaType   string `json:"mediaType"`
}

// LocationPayload is the JSON payload shape for per-location jobs.
type LocationPayload struct {
	LocID string `json:"locid"`
}

// FileJobs holds the ids of the jobs enqueued for one finalized file, used
// to wire the per-location jobs' dependency on "the last per-file
// ExifTool" (§4.5).
type FileJobs struct {
	ExifToolID string
	JobCount   int
}

// EnqueuePerFile enqueues the per-file job graph for one finalized file
// per the exact rules in spec.md §4.5:
//
//	EXIFTOOL (HIGH)
//	FFPROBE (HIGH, depends on ExifTool, videos only)
//	THUMBNAIL (NORMAL, depends on ExifTool, images+videos)
//	VIDEO_PROXY (LOW, independent, videos only)
//	IMAGE_TAGGING (BACKGROUND, depends on ExifTool, images only)
func (q *Queue) EnqueuePerFile(ctx context.Context, f model.FinalizedFile) (FileJobs, error) {
	payload := FilePayload{Hash: f.Hash, ArchivePath: f.ArchivePath, MediaType: string(f.MediaType)}

	exifRow, err := buildJobRow(model.JobExifTool, model.PriorityHigh, payload, "")
	if err != nil {
		return FileJobs{}, err
	}
	rows := []db.JobRow{exifRow}

	isVideo := f.MediaType == model.MediaVideo
	isImage := f.MediaType == model.MediaImage

	if isVideo {
		r, err := buildJobRow(model.JobFFProbe, model.PriorityHigh, payload, exifRow.JobID)
		if err != nil {
			return FileJobs{}, err
		}
		rows = append(rows, r)
	}
	if isVideo || isImage {
		r, err := buildJobRow(model.JobThumbnail, model.PriorityNormal, payload, exifRow.JobID)
		if err != nil {
			return FileJobs{}, err
		}
		rows = append(rows, r)
	}
	if isVideo {
		r, err := buildJobRow(model.JobVideoProxy, model.PriorityLow, payload, "")
		if err != nil {
			return FileJobs{}, err
		}
		rows = append(rows, r)
	}
	if isImage {
		r, err := buildJobRow(model.JobImageTagging, model.PriorityBackground, payload, exifRow.JobID)
		if err != nil {
			return FileJobs{}, err
		}
		rows = append(rows, r)
	}

	if err := q.insertAtomic(ctx, rows); err != nil {
		return FileJobs{}, err
	}
	return FileJobs{ExifToolID: exifRow.JobID, JobCount: len(rows)}, nil
}

// insertAtomic wraps rows in a single transaction via db.InsertJobs, so a
// file's whole job graph (§4.5) either lands completely or not at all.
func (q *Queue) insertAtomic(ctx context.Context, rows []db.JobRow) error {
	tx, err := q.d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("queue: begin tx: %w", err)
	}
	if err := db.InsertJobs(ctx, tx, rows); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("queue: commit job graph: %w", err)
	}
	return nil
}

// EnqueuePerLocation enqueues the per-location aggregate job graph once
// per finalized batch, per spec.md §4.5:
//
//	GPS_ENRICHMENT (NORMAL, depends on last per-file ExifTool)
//	LIVE_PHOTO (NORMAL, depends on last ExifTool)
//	SRT_TELEMETRY (NORMAL, depends on last ExifTool, only if docs present)
//	LOCATION_STATS (BACKGROUND, depends on GPS_ENRICHMENT)
//	BAGIT (BACKGROUND, depends on GPS_ENRICHMENT)
//	LOCATION_TAG_AGGREGATION (BACKGROUND, depends on GPS_ENRICHMENT, only if images present)
func (q *Queue) EnqueuePerLocation(ctx context.Context, locid, lastExifToolID string, hasDocs, hasImages bool) (int, error) {
	payload := LocationPayload{LocID: locid}

	gpsRow, err := buildJobRow(model.JobGPSEnrichment, model.PriorityNormal, payload, lastExifToolID)
	if err != nil {
		return 0, err
	}
	rows := []db.JobRow{gpsRow}

	livePhoto, err := buildJobRow(model.JobLivePhoto, model.PriorityNormal, payload, lastExifToolID)
	if err != nil {
		return 0, err
	}
	rows = append(rows, livePhoto)

	if hasDocs {
		r, err := buildJobRow(model.JobSRTTelemetry, model.PriorityNormal, payload, lastExifToolID)
		if err != nil {
			return 0, err
		}
		rows = append(rows, r)
	}

	locationStats, err := buildJobRow(model.JobLocationStats, model.PriorityBackground, payload, gpsRow.JobID)
	if err != nil {
		return 0, err
	}
	rows = append(rows, locationStats)

	bagit, err := buildJobRow(model.JobBagIt, model.PriorityBackground, payload, gpsRow.JobID)
	if err != nil {
		return 0, err
	}
	rows = append(rows, bagit)

	if hasImages {
		r, err := buildJobRow(model.JobLocationTagAggregation, model.PriorityBackground, payload, gpsRow.JobID)
		if err != nil {
			return 0, err
		}
		rows = append(rows, r)
	}

	if err := q.insertAtomic(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// CountByStatus tallies jobs in a queue grouped by status.
func (q *Queue) CountByStatus(ctx context.Context, queue model.JobType) (map[string]int, error) {
	return db.CountJobsByStatus(ctx, q.d.DB, string(queue))
}

// Peek returns up to limit pending jobs from a queue, oldest first.
func (q *Queue) Peek(ctx context.Context, queue model.JobType, limit int) ([]model.Job, error) {
	rows, err := db.PeekJobs(ctx, q.d.DB, string(queue), "pending", limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Job, 0, len(rows))
	for _, r := range rows {
		createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)
		j := model.Job{
			ID:        r.JobID,
			Queue:     model.JobType(r.Queue),
			Priority:  model.Priority(r.Priority),
			Payload:   r.Payload,
			Status:    r.Status,
			CreatedAt: createdAt,
		}
		if r.DependsOn.Valid {
			j.DependsOn = r.DependsOn.String
		}
		out = append(out, j)
	}
	return out, nil
}
