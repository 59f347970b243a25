package routes

import (
	"github.com/gin-gonic/gin"

	"usersapi/internal/adapter/http/handler"
	"usersapi/internal/adapter/http/middleware"
	"usersapi/internal/core/telemetry"
	"usersapi/pkg/config"
)

type HandlersConfig struct {
	UserHandler *handler.UserHandler
}

func SetupRouter(handlers HandlersConfig, metrics *telemetry.AppMetrics, logger *config.LokiLogger) *gin.Engine {
	return SetupRouterWithConfig(handlers, metrics, logger, config.GetDefaultConfig())
}

func SetupRouterWithConfig(handlers HandlersConfig, metrics *telemetry.AppMetrics, logger *config.LokiLogger, cfg *config.AppConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	middleware.SetupGinMiddleware(router, cfg, metrics, logger)
	router.Use(corsMiddleware())

	if handlers.UserHandler != nil {
		setupUserRoutes(router, handlers.UserHandler)
	}

	return router
}

// SetupRouterForTests skips tracing, rate limiting and metrics.
func SetupRouterForTests(handlers HandlersConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CurrentMiddleware())
	router.Use(corsMiddleware())

	if handlers.UserHandler != nil {
		setupUserRoutes(router, handlers.UserHandler)
	}

	return router
}

func setupUserRoutes(router *gin.Engine, userHandler *handler.UserHandler) {
	router.GET("/health", userHandler.Health)

	users := router.Group("/users")
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.ListUsers)
		users.POST("/upload", userHandler.UploadUsers)
		users.PATCH("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
