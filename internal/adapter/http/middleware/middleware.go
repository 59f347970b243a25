package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"usersapi/internal/core/telemetry"
	"usersapi/pkg/config"
)

// SetupGinMiddleware installs the shared chain: HTTPS redirect, tracing,
// request context, access log, rate limiting and request metrics.
// metrics may be nil.
func SetupGinMiddleware(router *gin.Engine, cfg *config.AppConfig, metrics *telemetry.AppMetrics, logger *config.LokiLogger) {
	router.Use(NewHTTPSEnforcer(cfg.EnforceHTTPS, logger.Logger.Logger).HTTPSMiddleware())

	router.Use(otelgin.Middleware(cfg.ServiceName))

	router.Use(CurrentMiddleware())

	router.Use(LoggingMiddleware(logger))

	if cfg.RateLimitEnabled {
		rateLimiter := NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, logger.Logger.Logger, metrics)
		router.Use(rateLimiter.RateLimitMiddleware())
	}

	if metrics != nil {
		router.Use(MetricsMiddleware(metrics))
	}
}
