package controller

import (
	"context"
	"testing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/solindex-labs/solindex/app/server/types"
	"github.com/solindex-labs/solindex/pkg/dispatch"
	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/normalize"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateJob(ctx context.Context, job *store.Job) (int64, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) JobsByCategory(ctx context.Context, c event.Category) ([]*store.Job, error) {
	args := m.Called(ctx, c)
	jobs, _ := args.Get(0).([]*store.Job)
	return jobs, args.Error(1)
}

func (m *mockStore) GetJob(ctx context.Context, id int64) (*store.Job, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*store.Job)
	return job, args.Error(1)
}

func (m *mockStore) SetJobStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) IncrementEntriesProcessed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) AppendLog(ctx context.Context, jobID int64, message, tag string) error {
	return m.Called(ctx, jobID, message, tag).Error(0)
}

func (m *mockStore) JobLogs(ctx context.Context, jobID int64, limit int) ([]*store.LogEntry, error) {
	args := m.Called(ctx, jobID, limit)
	entries, _ := args.Get(0).([]*store.LogEntry)
	return entries, args.Error(1)
}

func (m *mockStore) PruneLogs(ctx context.Context, tag string, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, tag, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ResetEntriesProcessed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Write(ctx context.Context, job *store.Job, rec normalize.Record) error {
	return m.Called(ctx, job, rec).Error(0)
}

type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) Provision(ctx context.Context, job *store.Job) error {
	return m.Called(ctx, job).Error(0)
}

func newTestController(t *testing.T, st store.Store, w dispatch.RecordWriter, p types.Provisioner) *Controller {
	logger := zaptest.NewLogger(t)
	app := &types.App{
		Store:  st,
		Writer: p,
		Logger: logger,
		Dispatcher: &dispatch.Dispatcher{
			Store: st,
			Processor: &dispatch.Processor{
				Store:  st,
				Writer: w,
				Logger: logger,
			},
			Pool:   pond.NewPool(4),
			Logger: logger,
		},
	}
	return &Controller{
		App:        app,
		AdminToken: "test-token",
		JWTSecret:  []byte("test-secret"),
	}
}
