package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/envreader/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
// An empty allowedOrigins allows all origins.
func SetupRouter(environmentUC *usecase.EnvironmentUseCase, allowedOrigins []string) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(environmentUC)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/environment", handler.GetEnvironment)
	v1.GET("/resolve", handler.GetResolve)
	v1.GET("/variables", handler.GetVariables)
	v1.GET("/readers", handler.GetReaders)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
