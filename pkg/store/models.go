package store

import (
	"time"

	"github.com/solindex-labs/solindex/pkg/event"
)

// Job lifecycle statuses. Jobs are created externally, transition to running
// when provisioning succeeds and to failed when it does not; stopped jobs are
// excluded from dispatch.
const (
	JobStatusRunning = "running"
	JobStatusFailed  = "failed"
	JobStatusStopped = "stopped"
)

// Audit log severity tags.
const (
	LogTagInfo    = "INFO"
	LogTagWarning = "WARNING"
	LogTagError   = "ERROR"
)

// Tenant database engines supported by the writer.
const (
	EngineOptionPostgres   = "postgres"
	EngineOptionClickHouse = "clickhouse"
)

// Job is one tenant's indexing configuration. The control-plane store owns
// it; the dispatcher and the registry cache hold read-only, possibly-stale
// copies.
type Job struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	DbEngine         string    `json:"db_engine"`
	DbHost           string    `json:"db_host"`
	DbPort           int       `json:"db_port"`
	DbName           string    `json:"db_name"`
	DbUser           string    `json:"db_user"`
	DbPassword       string    `json:"db_password"`
	EntriesProcessed int64     `json:"entries_processed"`
	LastUpdated      time.Time `json:"last_updated"`
	CreatedAt        time.Time `json:"created_at"`
}

// Category parses the job's type column.
func (j *Job) Category() (event.Category, bool) {
	return event.ParseCategory(j.Type)
}

// Engine returns the tenant database engine, defaulting to postgres.
func (j *Job) Engine() string {
	if j.DbEngine == EngineOptionClickHouse {
		return EngineOptionClickHouse
	}
	return EngineOptionPostgres
}

// LogEntry is one audit-log row attached to a job.
type LogEntry struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	Message   string    `json:"message"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}
