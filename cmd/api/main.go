package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	api "usersapi/internal/adapter/http"
	"usersapi/internal/adapter/telemetry"
	"usersapi/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := config.NewLokiLogger(cfg.ServiceName, cfg.LokiURL, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otlpEndpoint := cfg.OTLPEndpoint
	if !cfg.TelemetryEnabled {
		otlpEndpoint = ""
	}

	tel, err := telemetry.NewContainer(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		MetricsPort:    cfg.MetricsPort,
		OTLPEndpoint:   otlpEndpoint,
	}, slog.Default())
	if err != nil {
		logger.Logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Logger.Warn("Telemetry shutdown", zap.Error(err))
		}
	}()

	tel.AppMetrics.StartSystemMetrics(ctx)

	probe := tel.NewTelemetryProbe(slog.Default())

	if err := api.StartServerWithConfig(ctx, tel.AppMetrics, logger, cfg, probe); err != nil {
		logger.Logger.Error("Server stopped", zap.Error(err))
		return
	}

	logger.Logger.Info("Shut down gracefully")
}
