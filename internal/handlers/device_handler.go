package handlers

import (
	"net/http"

	"github.com/anonto42/pinpoint/backend/internal/middleware"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// DeviceHandler registers the push token of the caller's device
type DeviceHandler struct {
	deviceRepository repositories.DeviceTokenRepository
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(deviceRepo repositories.DeviceTokenRepository) *DeviceHandler {
	return &DeviceHandler{deviceRepository: deviceRepo}
}

// RegisterDeviceRoutes registers device token routes
func (h *DeviceHandler) RegisterDeviceRoutes(g *echo.Group) {
	g.PUT("/devices", h.RegisterDevice)
	g.DELETE("/devices", h.UnregisterDevice)
}

// RegisterDevice stores the token alerts are pushed to, replacing the previous one
func (h *DeviceHandler) RegisterDevice(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.RegisterDeviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.deviceRepository.Upsert(c.Request().Context(), userID, req.Token, req.Platform); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnregisterDevice stops alerts for the caller
func (h *DeviceHandler) UnregisterDevice(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.deviceRepository.Delete(c.Request().Context(), userID); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
