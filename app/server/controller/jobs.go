package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/registry"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/solindex-labs/solindex/pkg/tenant"
	"go.uber.org/zap"
)

// CreateJobRequest is the payload for registering a subscriber job.
type CreateJobRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	DbEngine   string `json:"dbEngine"`
	DbHost     string `json:"dbHost"`
	DbPort     int    `json:"dbPort"`
	DbName     string `json:"dbName"`
	DbUser     string `json:"dbUser"`
	DbPassword string `json:"dbPassword"`
}

// JobView is a Job without its database credentials.
type JobView struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	DbEngine         string    `json:"dbEngine"`
	DbHost           string    `json:"dbHost"`
	DbName           string    `json:"dbName"`
	EntriesProcessed int64     `json:"entriesProcessed"`
	LastUpdated      time.Time `json:"lastUpdated"`
	CreatedAt        time.Time `json:"createdAt"`
}

func viewOf(job *store.Job) JobView {
	return JobView{
		ID:               job.ID,
		Name:             job.Name,
		Type:             job.Type,
		Status:           job.Status,
		DbEngine:         job.Engine(),
		DbHost:           job.DbHost,
		DbName:           job.DbName,
		EntriesProcessed: job.EntriesProcessed,
		LastUpdated:      job.LastUpdated,
		CreatedAt:        job.CreatedAt,
	}
}

func (in *CreateJobRequest) validate() (event.Category, error) {
	if in.Name == "" {
		return event.CategoryUnknown, errors.New("name is required")
	}
	cat, ok := event.ParseCategory(in.Type)
	if !ok {
		return event.CategoryUnknown, fmt.Errorf("unsupported job type %q", in.Type)
	}
	if in.DbHost == "" || in.DbName == "" || in.DbUser == "" {
		return event.CategoryUnknown, errors.New("dbHost, dbName and dbUser are required")
	}
	switch in.DbEngine {
	case "", store.EngineOptionPostgres, store.EngineOptionClickHouse:
	default:
		return event.CategoryUnknown, fmt.Errorf("unsupported db engine %q", in.DbEngine)
	}
	return cat, nil
}

// HandleCreateJob registers a job, provisions its destination table and
// activates it. A job whose database cannot be reached is stored as failed
// with a diagnosis in its log, so the tenant can fix the connection details
// and see why.
func (c *Controller) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	cat, err := in.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	port := in.DbPort
	if port == 0 {
		if in.DbEngine == store.EngineOptionClickHouse {
			port = 9000
		} else {
			port = 5432
		}
	}

	job := &store.Job{
		Name:       in.Name,
		Type:       cat.String(),
		Status:     store.JobStatusStopped,
		DbEngine:   in.DbEngine,
		DbHost:     in.DbHost,
		DbPort:     port,
		DbName:     in.DbName,
		DbUser:     in.DbUser,
		DbPassword: in.DbPassword,
	}

	id, err := c.App.Store.CreateJob(ctx, job)
	if err != nil {
		c.App.Logger.Error("Failed to create job", zap.String("name", in.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	job.ID = id

	if err := c.App.Writer.Provision(ctx, job); err != nil {
		c.failProvisioning(ctx, job, err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"id":        id,
			"status":    store.JobStatusFailed,
			"diagnosis": diagnose(err),
		})
		return
	}

	if err := c.App.Store.SetJobStatus(ctx, id, store.JobStatusRunning); err != nil {
		c.App.Logger.Error("Failed to activate job", zap.Int64("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to activate job")
		return
	}
	job.Status = store.JobStatusRunning

	if err := c.App.Store.AppendLog(ctx, id, "job provisioned, destination table ready", store.LogTagInfo); err != nil {
		c.App.Logger.Warn("Failed to append job log", zap.Int64("job_id", id), zap.Error(err))
	}

	c.App.Cache.Append(ctx, cat, job, registry.DefaultTTL)

	c.App.Logger.Info("Job created",
		zap.Int64("job_id", id),
		zap.String("name", job.Name),
		zap.String("type", job.Type),
		zap.String("engine", job.Engine()))
	writeJSON(w, http.StatusCreated, viewOf(job))
}

func (c *Controller) failProvisioning(ctx context.Context, job *store.Job, cause error) {
	if err := c.App.Store.SetJobStatus(ctx, job.ID, store.JobStatusFailed); err != nil {
		c.App.Logger.Error("Failed to mark job failed", zap.Int64("job_id", job.ID), zap.Error(err))
	}
	if err := c.App.Store.AppendLog(ctx, job.ID, "provisioning failed: "+diagnose(cause), store.LogTagError); err != nil {
		c.App.Logger.Warn("Failed to append job log", zap.Int64("job_id", job.ID), zap.Error(err))
	}
	c.App.Logger.Warn("Job provisioning failed",
		zap.Int64("job_id", job.ID),
		zap.String("name", job.Name),
		zap.Error(cause))
}

func diagnose(err error) string {
	var connErr *tenant.ConnectionError
	if errors.As(err, &connErr) {
		return connErr.Diagnosis()
	}
	var schemaErr *tenant.SchemaError
	if errors.As(err, &schemaErr) {
		return fmt.Sprintf("destination table %s could not be created: %v", schemaErr.Table, schemaErr.Err)
	}
	return err.Error()
}

// HandleJobDetail returns one job, credentials omitted.
func (c *Controller) HandleJobDetail(w http.ResponseWriter, r *http.Request) {
	job, ok := c.jobFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(job))
}

// HandleJobLogs returns a job's most recent log entries.
func (c *Controller) HandleJobLogs(w http.ResponseWriter, r *http.Request) {
	job, ok := c.jobFromPath(w, r)
	if !ok {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	entries, err := c.App.Store.JobLogs(r.Context(), job.ID, limit)
	if err != nil {
		c.App.Logger.Error("Failed to load job logs", zap.Int64("job_id", job.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobId": job.ID, "logs": entries})
}

// HandleStopJob transitions a job to stopped and evicts it from the
// dispatch cache so no further events reach its database.
func (c *Controller) HandleStopJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	job, ok := c.jobFromPath(w, r)
	if !ok {
		return
	}

	if err := c.App.Store.SetJobStatus(ctx, job.ID, store.JobStatusStopped); err != nil {
		c.App.Logger.Error("Failed to stop job", zap.Int64("job_id", job.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to stop job")
		return
	}
	job.Status = store.JobStatusStopped

	if cat, ok := job.Category(); ok {
		c.App.Cache.Remove(ctx, cat, job.ID)
	}

	if err := c.App.Store.AppendLog(ctx, job.ID, "job stopped", store.LogTagInfo); err != nil {
		c.App.Logger.Warn("Failed to append job log", zap.Int64("job_id", job.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, viewOf(job))
}

func (c *Controller) jobFromPath(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return nil, false
	}

	job, err := c.App.Store.GetJob(r.Context(), id)
	if err != nil {
		c.App.Logger.Error("Failed to load job", zap.Int64("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return nil, false
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}
