// internal/handler/roaster_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roaster-service/internal/driver/aillio"
	"roaster-service/internal/model"
	"roaster-service/internal/service"
	"roaster-service/internal/utils"
)

// RoasterHandler exposes the device control surface over HTTP.
type RoasterHandler struct {
	roasterService *service.RoasterService
	logger         *utils.ServiceLogger
}

// NewRoasterHandler creates a new roaster handler
func NewRoasterHandler(roasterService *service.RoasterService, logger *zap.Logger) *RoasterHandler {
	return &RoasterHandler{
		roasterService: roasterService,
		logger:         utils.NewServiceLogger(logger, "roaster-handler"),
	}
}

// Connect opens the USB session to the roaster and starts polling.
func (h *RoasterHandler) Connect(c *gin.Context) {
	if err := h.roasterService.Connect(); err != nil {
		if errors.Is(err, aillio.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Roaster not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Failed to connect to roaster", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Roaster connected", h.roasterService.Info())
}

// Disconnect stops polling and releases the device.
func (h *RoasterHandler) Disconnect(c *gin.Context) {
	h.roasterService.Disconnect()
	utils.SuccessResponse(c, http.StatusOK, "Roaster disconnected", nil)
}

// GetStatus returns the latest telemetry snapshot.
func (h *RoasterHandler) GetStatus(c *gin.Context) {
	if !h.roasterService.IsConnected() {
		utils.ErrorResponse(c, http.StatusConflict, "Roaster not connected", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Roaster status", h.roasterService.Reading())
}

// GetInfo returns the identity block read at connect time.
func (h *RoasterHandler) GetInfo(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Roaster info", h.roasterService.Info())
}

// Control applies absolute heater/fan/drum setpoints. Values outside
// the device ranges are clamped; the response carries the resulting
// local setpoints.
func (h *RoasterHandler) Control(c *gin.Context) {
	var req model.ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid control request", err)
		return
	}

	if req.Heater == nil && req.Fan == nil && req.Drum == nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Control request carries no setpoints", nil)
		return
	}

	if err := h.roasterService.SetControls(&req); err != nil {
		utils.ErrorResponse(c, http.StatusConflict, "Roaster not connected", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Setpoints applied", h.roasterService.Reading())
}
