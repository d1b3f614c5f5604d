// Package store implements the control-plane store: the authoritative
// relational home of subscriber jobs and their audit log.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/solindex-labs/solindex/pkg/db/postgres"
	"github.com/solindex-labs/solindex/pkg/event"
	"go.uber.org/zap"
)

// Store is the control-plane interface consumed by the dispatcher, the
// tenant writer and the maintenance jobs. Implementations must be safe for
// concurrent use.
type Store interface {
	CreateJob(ctx context.Context, job *Job) (int64, error)
	JobsByCategory(ctx context.Context, c event.Category) ([]*Job, error)
	GetJob(ctx context.Context, id int64) (*Job, error)
	SetJobStatus(ctx context.Context, id int64, status string) error
	IncrementEntriesProcessed(ctx context.Context, id int64) error
	AppendLog(ctx context.Context, jobID int64, message, tag string) error
	JobLogs(ctx context.Context, jobID int64, limit int) ([]*LogEntry, error)
	PruneLogs(ctx context.Context, tag string, olderThan time.Time) (int64, error)
	ResetEntriesProcessed(ctx context.Context) (int64, error)
	Health(ctx context.Context) error
}

// DB is the pgx-backed Store implementation.
type DB struct {
	postgres.Client
}

// New connects to the control-plane database and ensures its schema exists.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	client, err := postgres.New(ctx, logger)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client}
	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// InitializeDB creates the control-plane tables when they do not exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	jobsDDL := `
		CREATE TABLE IF NOT EXISTS indexer_jobs (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'stopped',
			db_engine TEXT NOT NULL DEFAULT 'postgres',
			db_host TEXT NOT NULL,
			db_port INTEGER NOT NULL DEFAULT 5432,
			db_name TEXT NOT NULL,
			db_user TEXT NOT NULL,
			db_password TEXT NOT NULL,
			entries_processed BIGINT NOT NULL DEFAULT 0,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if err := db.Exec(ctx, jobsDDL); err != nil {
		return fmt.Errorf("create indexer_jobs: %w", err)
	}

	logsDDL := `
		CREATE TABLE IF NOT EXISTS logs (
			id BIGSERIAL PRIMARY KEY,
			job_id BIGINT NOT NULL REFERENCES indexer_jobs(id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			tag TEXT NOT NULL DEFAULT 'INFO',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if err := db.Exec(ctx, logsDDL); err != nil {
		return fmt.Errorf("create logs: %w", err)
	}

	indexDDL := `CREATE INDEX IF NOT EXISTS idx_indexer_jobs_type_status ON indexer_jobs (type, status)`
	if err := db.Exec(ctx, indexDDL); err != nil {
		return fmt.Errorf("create indexer_jobs index: %w", err)
	}

	return nil
}

const jobColumns = `id, name, type, status, db_engine, db_host, db_port, db_name, db_user, db_password, entries_processed, last_updated, created_at`

// CreateJob inserts a new job row and returns its id. Jobs start in the
// stopped state until their database is provisioned.
func (db *DB) CreateJob(ctx context.Context, job *Job) (int64, error) {
	query := `
		INSERT INTO indexer_jobs (name, type, status, db_engine, db_host, db_port, db_name, db_user, db_password)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	status := job.Status
	if status == "" {
		status = JobStatusStopped
	}
	engine := job.DbEngine
	if engine == "" {
		engine = EngineOptionPostgres
	}

	var id int64
	err := db.QueryRow(ctx, query,
		job.Name, job.Type, status, engine,
		job.DbHost, job.DbPort, job.DbName, job.DbUser, job.DbPassword,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create job %q: %w", job.Name, err)
	}
	return id, nil
}

// JobsByCategory returns the running jobs subscribed to the given category.
func (db *DB) JobsByCategory(ctx context.Context, c event.Category) ([]*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM indexer_jobs WHERE type = $1 AND status = $2 ORDER BY id`, jobColumns)

	rows, err := db.Query(ctx, query, c.String(), JobStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("query jobs for %s: %w", c, err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job := &Job{}
		if err := rows.Scan(
			&job.ID, &job.Name, &job.Type, &job.Status,
			&job.DbEngine, &job.DbHost, &job.DbPort, &job.DbName, &job.DbUser, &job.DbPassword,
			&job.EntriesProcessed, &job.LastUpdated, &job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetJob returns a single job by id, or nil when it does not exist.
func (db *DB) GetJob(ctx context.Context, id int64) (*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM indexer_jobs WHERE id = $1`, jobColumns)

	job := &Job{}
	err := db.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Name, &job.Type, &job.Status,
		&job.DbEngine, &job.DbHost, &job.DbPort, &job.DbName, &job.DbUser, &job.DbPassword,
		&job.EntriesProcessed, &job.LastUpdated, &job.CreatedAt,
	)
	if postgres.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return job, nil
}

// SetJobStatus transitions a job's lifecycle status.
func (db *DB) SetJobStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE indexer_jobs SET status = $2, last_updated = now() WHERE id = $1`
	if err := db.Exec(ctx, query, id, status); err != nil {
		return fmt.Errorf("set job %d status %s: %w", id, status, err)
	}
	return nil
}

// IncrementEntriesProcessed bumps the processed-entry counter after a
// successful tenant write.
func (db *DB) IncrementEntriesProcessed(ctx context.Context, id int64) error {
	query := `UPDATE indexer_jobs SET entries_processed = entries_processed + 1, last_updated = now() WHERE id = $1`
	if err := db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("increment entries for job %d: %w", id, err)
	}
	return nil
}

// AppendLog inserts one audit-log row for a job.
func (db *DB) AppendLog(ctx context.Context, jobID int64, message, tag string) error {
	query := `INSERT INTO logs (job_id, message, tag) VALUES ($1, $2, $3)`
	if err := db.Exec(ctx, query, jobID, message, tag); err != nil {
		return fmt.Errorf("append %s log for job %d: %w", tag, jobID, err)
	}
	return nil
}

// JobLogs returns the most recent log entries for a job, newest first.
func (db *DB) JobLogs(ctx context.Context, jobID int64, limit int) ([]*LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, job_id, message, tag, created_at FROM logs WHERE job_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := db.Query(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs for job %d: %w", jobID, err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		entry := &LogEntry{}
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Message, &entry.Tag, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PruneLogs deletes log rows with the given tag older than the cutoff and
// returns the number removed.
func (db *DB) PruneLogs(ctx context.Context, tag string, olderThan time.Time) (int64, error) {
	query := `DELETE FROM logs WHERE tag = $1 AND created_at < $2`
	res, err := db.Pool.Exec(ctx, query, tag, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune %s logs: %w", tag, err)
	}
	return res.RowsAffected(), nil
}

// ResetEntriesProcessed zeroes every job's processed-entry counter and
// returns the number of jobs touched.
func (db *DB) ResetEntriesProcessed(ctx context.Context) (int64, error) {
	query := `UPDATE indexer_jobs SET entries_processed = 0 WHERE entries_processed <> 0`
	res, err := db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("reset entries_processed: %w", err)
	}
	return res.RowsAffected(), nil
}
