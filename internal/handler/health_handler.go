// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roaster-service/internal/config"
	"roaster-service/internal/service"
	"roaster-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	config         *config.Config
	roasterService *service.RoasterService
	logger         *utils.ServiceLogger
	startedAt      time.Time
}

// HealthResponse is the body of the general health check.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]interface{} `json:"checks"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config, roasterService *service.RoasterService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		config:         cfg,
		roasterService: roasterService,
		logger:         utils.NewServiceLogger(logger, "health-handler"),
		startedAt:      time.Now(),
	}
}

// HealthCheck reports service health. A disconnected roaster is not
// unhealthy: the service is useful while waiting for the device.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).String(),
		Checks: map[string]interface{}{
			"roaster_connected": h.roasterService.IsConnected(),
		},
	}

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck for orchestration readiness probes.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for orchestration liveness probes.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}
