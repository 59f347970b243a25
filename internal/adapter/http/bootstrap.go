package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"usersapi/internal/adapter/http/routes"
	"usersapi/internal/core/port"
	"usersapi/internal/core/telemetry"
	"usersapi/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func StartServer(ctx context.Context, metrics *telemetry.AppMetrics, logger *config.LokiLogger) error {
	return StartServerWithConfig(ctx, metrics, logger, config.GetDefaultConfig(), nil)
}

// StartServerWithConfig serves until ctx is cancelled, then drains in-flight
// requests before releasing the store and cache.
func StartServerWithConfig(ctx context.Context, metrics *telemetry.AppMetrics, logger *config.LokiLogger, cfg *config.AppConfig, probe port.Telemetry) error {
	container, err := NewContainer(ctx, cfg, logger, metrics, probe)
	if err != nil {
		return err
	}
	defer container.Close()

	router := routes.SetupRouterWithConfig(routes.HandlersConfig{
		UserHandler: container.UserHandler,
	}, metrics, logger, cfg)

	logger.Logger.Info("Server starting",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("database_driver", cfg.DatabaseDriver),
		zap.String("cache_driver", cfg.CacheDriver),
		zap.Bool("rate_limit_enabled", cfg.RateLimitEnabled),
		zap.Bool("https_enforced", cfg.EnforceHTTPS))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Logger.Info("Shutting down server")

	return srv.Shutdown(shutdownCtx)
}
