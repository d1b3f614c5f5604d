// Package server assembles the webhook indexer service: control-plane
// store, Redis-backed cache and queue, dispatcher, queue workers and the
// HTTP API.
package server

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/solindex-labs/solindex/app/server/types"
	"github.com/solindex-labs/solindex/pkg/dispatch"
	"github.com/solindex-labs/solindex/pkg/logging"
	"github.com/solindex-labs/solindex/pkg/maintenance"
	"github.com/solindex-labs/solindex/pkg/redis"
	"github.com/solindex-labs/solindex/pkg/registry"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/solindex-labs/solindex/pkg/tenant"
	"github.com/solindex-labs/solindex/pkg/utils"
	"go.uber.org/zap"
)

// Initialize wires the application. The control-plane store is required;
// Redis is optional and its absence degrades the service to synchronous
// writes with no cache.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	db, err := store.New(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize control-plane store", zap.Error(err))
	}

	// Redis backs the job cache and the durable queue. Both are
	// optimizations: when Redis is down the dispatcher queries the store
	// directly and writes synchronously.
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "true") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis, continuing without cache and queue",
				zap.Error(err))
			redisClient = nil
		}
	} else {
		logger.Info("Redis disabled, running with synchronous writes only")
	}

	var cache *registry.Cache
	if redisClient != nil {
		cache = registry.New(redisClient, logger)
	}
	queue := dispatch.NewQueue(redisClient, logger)

	writer := tenant.NewWriter(logger)
	processor := &dispatch.Processor{
		Store:  db,
		Writer: writer,
		Cache:  cache,
		Logger: logger,
	}

	dispatcher := &dispatch.Dispatcher{
		Store:     db,
		Cache:     cache,
		Queue:     queue,
		Processor: processor,
		Pool:      pond.NewPool(utils.EnvInt("DISPATCH_CONCURRENCY", 10)),
		Logger:    logger,
	}

	workers := dispatch.NewWorkers(redisClient, db, queue, processor, logger)

	scheduler, err := maintenance.New(ctx, db, logger)
	if err != nil {
		logger.Fatal("Unable to initialize maintenance scheduler", zap.Error(err))
	}

	return &types.App{
		Store:       db,
		RedisClient: redisClient,
		Cache:       cache,
		Queue:       queue,
		Writer:      writer,
		Dispatcher:  dispatcher,
		Workers:     workers,
		Maintenance: scheduler,
		Logger:      logger,
	}
}
