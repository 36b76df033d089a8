package db

import (
	"context"
	"database/sql"
	"fmt"
)

// JobRow mirrors one row of the jobs table (spec.md §4.5/§6). This core
// only enqueues; nothing in its scope dequeues or executes a job.
type JobRow struct {
	JobID     string
	Queue     string
	Priority  string
	Payload   string
	DependsOn sql.NullString
	Status    string
	CreatedAt string
}

// InsertJob enqueues a single job row.
func InsertJob(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, j JobRow) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO jobs (job_id, queue, priority, payload, depends_on, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.JobID, j.Queue, j.Priority, j.Payload, j.DependsOn, j.Status, j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db: insert job %s: %w", j.JobID, err)
	}
	return nil
}

// InsertJobs enqueues a batch of jobs in one transaction, used by
// EnqueuePerFile/EnqueuePerLocation to keep a file's whole job graph
// atomic.
func InsertJobs(ctx context.Context, tx *sql.Tx, jobs []JobRow) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (job_id, queue, priority, payload, depends_on, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("db: prepare job insert: %w", err)
	}
	defer stmt.Close()

	for _, j := range jobs {
		if _, err := stmt.ExecContext(ctx, j.JobID, j.Queue, j.Priority, j.Payload, j.DependsOn, j.Status, j.CreatedAt); err != nil {
			return fmt.Errorf("db: insert job %s: %w", j.JobID, err)
		}
	}
	return nil
}

// CountJobsByStatus tallies jobs in a queue grouped by status, used by
// JobQueue.CountByStatus diagnostics.
func CountJobsByStatus(ctx context.Context, q Queryer, queue string) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs WHERE queue = ? GROUP BY status`, queue)
	if err != nil {
		return nil, fmt.Errorf("db: count jobs for queue %s: %w", queue, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("db: scan job count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// PeekJobs returns up to limit jobs from a queue in status, ordered by
// creation time, for JobQueue.Peek.
func PeekJobs(ctx context.Context, q Queryer, queue, status string, limit int) ([]JobRow, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT job_id, queue, priority, payload, depends_on, status, created_at FROM jobs WHERE queue = ? AND status = ? ORDER BY created_at ASC LIMIT ?`,
		queue, status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("db: peek jobs in queue %s: %w", queue, err)
	}
	defer rows.Close()

	var out []JobRow
	for rows.Next() {
		var j JobRow
		if err := rows.Scan(&j.JobID, &j.Queue, &j.Priority, &j.Payload, &j.DependsOn, &j.Status, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
