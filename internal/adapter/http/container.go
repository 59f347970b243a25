package http

import (
	"context"
	"fmt"

	memcache "usersapi/internal/adapter/cache/memory"
	rediscache "usersapi/internal/adapter/cache/redis"
	"usersapi/internal/adapter/database/memory"
	"usersapi/internal/adapter/database/postgres"
	pgrepository "usersapi/internal/adapter/database/postgres/repository"
	"usersapi/internal/adapter/database/sqlite"
	sqliterepository "usersapi/internal/adapter/database/sqlite/repository"
	"usersapi/internal/adapter/http/handler"
	"usersapi/internal/core/port"
	"usersapi/internal/core/service"
	"usersapi/internal/core/telemetry"
	"usersapi/pkg/config"
)

type Container struct {
	UserRepo    port.UserRepository
	Cache       port.CacheRepository
	UserService port.UserService
	UserHandler *handler.UserHandler

	closers []func()
}

// NewContainer opens the store and cache named by cfg and wires the user
// service on top of them. Close releases whatever was opened.
func NewContainer(ctx context.Context, cfg *config.AppConfig, logger *config.LokiLogger, metrics *telemetry.AppMetrics, probe port.Telemetry) (*Container, error) {
	if probe == nil {
		probe = telemetry.NewNoOpProbe()
	}

	c := &Container{}

	repo, err := c.openRepository(ctx, cfg, probe)
	if err != nil {
		c.Close()
		return nil, err
	}

	cache, err := openCache(ctx, cfg, metrics)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, func() { cache.Close() })

	userSvc := service.NewUserService(repo,
		service.WithCache(cache, cfg.CacheTTL),
		service.WithTelemetry(probe),
		service.WithImportWorkers(cfg.ImportWorkers),
	)

	c.UserRepo = repo
	c.Cache = cache
	c.UserService = userSvc
	c.UserHandler = handler.NewUserHandler(userSvc, logger, handler.UserHandlerConfig{
		DefaultPageLimit:   cfg.DefaultPageLimit,
		ImportMaxFileBytes: cfg.ImportMaxFileBytes,
	})

	return c, nil
}

func (c *Container) openRepository(ctx context.Context, cfg *config.AppConfig, probe port.Telemetry) (port.UserRepository, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.New(sqlite.Options{Path: cfg.DatabasePath, LogLevel: cfg.LogLevel})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { db.Close() })
		return sqliterepository.NewUserRepository(db, probe), nil

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		return pgrepository.NewUserRepository(db, probe), nil

	case config.DriverMemory:
		return memory.NewUserRepository(), nil
	}

	return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
}

func openCache(ctx context.Context, cfg *config.AppConfig, metrics *telemetry.AppMetrics) (port.CacheRepository, error) {
	switch cfg.CacheDriver {
	case config.CacheRedis:
		return rediscache.NewCache(ctx, cfg.RedisURL, metrics)
	case config.CacheMemory:
		return memcache.NewCache(cfg.CacheTTL, metrics), nil
	}

	return nil, fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
