package types

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/solindex-labs/solindex/pkg/dispatch"
	"github.com/solindex-labs/solindex/pkg/maintenance"
	"github.com/solindex-labs/solindex/pkg/redis"
	"github.com/solindex-labs/solindex/pkg/registry"
	"github.com/solindex-labs/solindex/pkg/store"
	"go.uber.org/zap"
)

// Provisioner verifies a job's destination database and creates its table.
// *tenant.Writer is the production implementation.
type Provisioner interface {
	Provision(ctx context.Context, job *store.Job) error
}

// App carries the wired components of the indexer service.
type App struct {
	// Control-plane store
	Store store.Store

	// Redis client, nil when Redis is disabled or unreachable
	RedisClient *redis.Client

	// Job registry cache, nil when Redis is absent
	Cache *registry.Cache

	// Durable webhook queue, nil when Redis is absent
	Queue *dispatch.Queue

	// Tenant database writer
	Writer Provisioner

	// Event fan-out
	Dispatcher *dispatch.Dispatcher

	// Queue consumers, nil when Redis is absent
	Workers *dispatch.Workers

	// Log pruning and counter resets
	Maintenance *maintenance.Scheduler

	// Zap Logger
	Logger *zap.Logger

	// HTTP Server
	Server *http.Server
}

// Start runs the background components and then serves HTTP. Blocks until
// the server exits.
func (a *App) Start(ctx context.Context) {
	if a.Workers != nil {
		go func() {
			if err := a.Workers.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error("Queue workers exited", zap.Error(err))
			}
		}()
	}

	if a.Maintenance != nil {
		a.Maintenance.Start()
	}

	go func() {
		<-ctx.Done()
		a.Stop()
	}()

	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Logger.Fatal("Server failed", zap.Error(err))
	}
}

// Stop shuts the service down in dependency order: HTTP first so no new
// events arrive, then the schedulers and clients.
func (a *App) Stop() {
	a.Logger.Info("Shutting down")

	if a.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("Server shutdown error", zap.Error(err))
		}
	}

	if a.Maintenance != nil {
		a.Maintenance.Stop()
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Warn("Redis close error", zap.Error(err))
		}
	}

	if closer, ok := a.Store.(interface{ Close() }); ok {
		closer.Close()
	}
}
