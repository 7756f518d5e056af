package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/pinpoint/backend/internal/middleware"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// WatcherHandler handles HTTP requests related to watch zones
type WatcherHandler struct {
	watcherRepository repositories.WatcherRepository
	maxZonesPerUser   int
}

// NewWatcherHandler creates a new WatcherHandler
func NewWatcherHandler(watcherRepo repositories.WatcherRepository, maxZonesPerUser int) *WatcherHandler {
	return &WatcherHandler{
		watcherRepository: watcherRepo,
		maxZonesPerUser:   maxZonesPerUser,
	}
}

// RegisterWatcherRoutes registers watch zone routes
func (h *WatcherHandler) RegisterWatcherRoutes(g *echo.Group) {
	g.POST("/watchers", h.CreateWatcher)
	g.GET("/watchers", h.ListWatchers)
	g.DELETE("/watchers/:id", h.DeleteWatcher)
}

// CreateWatcher adds a watch zone for the caller. A user holding the maximum
// number of active zones gets 409.
func (h *WatcherHandler) CreateWatcher(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateWatcherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	zone := &models.WatchZone{
		OwnerID:      userID,
		Category:     strings.TrimSpace(req.Category),
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		RadiusMeters: *req.RadiusMeters,
	}
	if err := zone.Validate(); err != nil {
		return toHTTPError(c, err)
	}

	if err := h.watcherRepository.CreateWithinLimit(c.Request().Context(), zone, h.maxZonesPerUser); err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, zone)
}

// ListWatchers returns the caller's active zones
func (h *WatcherHandler) ListWatchers(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	zones, err := h.watcherRepository.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	if zones == nil {
		zones = []models.WatchZone{}
	}
	return c.JSON(http.StatusOK, zones)
}

// DeleteWatcher removes one of the caller's zones
func (h *WatcherHandler) DeleteWatcher(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid watcher ID")
	}

	if err := h.watcherRepository.Delete(c.Request().Context(), uint(id), userID); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
