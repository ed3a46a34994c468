// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roaster-service/internal/config"
	"roaster-service/internal/handler"
	"roaster-service/internal/middleware"
	"roaster-service/internal/service"
	"roaster-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	roasterService   *service.RoasterService
	telemetryHandler *handler.TelemetryHandler
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	roasterService *service.RoasterService,
	telemetryHandler *handler.TelemetryHandler,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		roasterService:   roasterService,
		telemetryHandler: telemetryHandler,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.config, r.roasterService, r.logger)
	roasterHandler := handler.NewRoasterHandler(r.roasterService, r.logger)

	// Health check routes
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	roaster := apiV1.Group("/roaster")
	{
		roaster.POST("/connect", roasterHandler.Connect)
		roaster.POST("/disconnect", roasterHandler.Disconnect)
		roaster.GET("/status", roasterHandler.GetStatus)
		roaster.GET("/info", roasterHandler.GetInfo)
		roaster.POST("/control", roasterHandler.Control)
	}

	// WebSocket telemetry stream
	router.GET("/ws/telemetry", r.telemetryHandler.HandleTelemetry)

	r.logger.Info("All routes configured successfully")
}
