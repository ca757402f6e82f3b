// Package bootstrap assembles the ambient components (config, logger, and
// the optional Postgres/Redis backends) that cmd/flowd wires into its
// service container, grounded on the teacher's common/bootstrap.Setup
// sequence trimmed of the queue stage — this engine runs workflows
// in-process from an HTTP call rather than off a consumed queue.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/diagflow/common/config"
	"github.com/lyzr/diagflow/common/db"
	"github.com/lyzr/diagflow/common/logger"
	rediscommon "github.com/lyzr/diagflow/common/redis"
	"github.com/lyzr/diagflow/common/telemetry"
)

// Components holds every ambient dependency a flowd process needs.
type Components struct {
	Config *config.Config
	Logger *logger.Logger

	// DB is non-nil only when Config.Database.Enabled — the optional
	// registry snapshot store.
	DB *db.DB

	// Redis is non-nil only when Config.Cache.Enabled — the optional
	// registry change notifier and rate limiter backend.
	Redis *rediscommon.Client

	// Telemetry exposes the optional pprof and metrics endpoints; its
	// counters are always live even when the pprof HTTP listener isn't,
	// so the Engine can record against it unconditionally.
	Telemetry *telemetry.Telemetry

	cleanupFuncs []func() error
}

// Setup loads configuration, builds the logger, and connects to the
// optional Postgres/Redis backends named in the environment.
func Setup(ctx context.Context, serviceName string) (*Components, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load config: %w", err)
	}

	c := &Components{
		Config:       cfg,
		Logger:       logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat),
		cleanupFuncs: make([]func() error, 0),
	}

	c.Logger.Info("initializing service", "service", serviceName, "environment", cfg.Service.Environment)

	if cfg.Database.Enabled {
		c.Logger.Info("connecting to registry snapshot store")
		pool, err := db.New(ctx, cfg, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect database: %w", err)
		}
		if err := pool.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: ensure registry schema: %w", err)
		}
		c.DB = pool
		c.addCleanup(func() error {
			c.DB.Close()
			return nil
		})
	}

	if cfg.Cache.Enabled {
		c.Logger.Info("connecting to redis", "address", cfg.Cache.Address)
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Address,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("bootstrap: connect redis: %w", err)
		}
		c.Redis = rediscommon.NewClient(redisClient, c.Logger)
		c.addCleanup(func() error {
			return redisClient.Close()
		})
	}

	c.Telemetry = telemetry.New(cfg.Telemetry.EnablePprof, cfg.Telemetry.PprofPort, cfg.Telemetry.MetricsPort, c.Logger)
	if err := c.Telemetry.Start(ctx); err != nil {
		c.Logger.Warn("failed to start telemetry", "error", err)
	}

	return c, nil
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown runs every registered cleanup function in LIFO order.
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("bootstrap: shutdown errors: %v", errs)
	}
	c.Logger.Info("shutdown complete")
	return nil
}

// Health reports whether every connected backend is reachable.
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.GetUnderlying().Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}
