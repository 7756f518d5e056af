package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/pinpoint/backend/internal/middleware"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/labstack/echo/v4"
)

const (
	defaultNearbyRadiusMeters = 1000
	defaultNearbyLimit        = 50
)

// PinIngestor stores a pin and notifies the watchers around it
type PinIngestor interface {
	Ingest(ctx context.Context, in models.PinInput) (models.IngestResult, error)
}

// PinHandler handles HTTP requests related to pins
type PinHandler struct {
	ingestor              PinIngestor
	pinRepository         repositories.PinRepository
	endorsementRepository repositories.EndorsementRepository
}

// NewPinHandler creates a new PinHandler
func NewPinHandler(ingestor PinIngestor, pinRepo repositories.PinRepository, endorsementRepo repositories.EndorsementRepository) *PinHandler {
	return &PinHandler{
		ingestor:              ingestor,
		pinRepository:         pinRepo,
		endorsementRepository: endorsementRepo,
	}
}

// RegisterPinRoutes registers pin-related routes
func (h *PinHandler) RegisterPinRoutes(g *echo.Group) {
	g.POST("/pins", h.CreatePin)
	g.GET("/pins/nearby", h.NearbyPins)
	g.GET("/pins/:id", h.GetPin)
	g.DELETE("/pins/:id", h.DeletePin)
}

// CreatePin drops a new pin at the caller's location. The response is sent as
// soon as the pin is stored; matching watchers are notified in the background.
func (h *PinHandler) CreatePin(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreatePinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.ingestor.Ingest(c.Request().Context(), models.PinInput{
		OwnerID:  userID,
		Category: req.Category,
		Location: models.Point{Latitude: *req.Latitude, Longitude: *req.Longitude},
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// GetPin retrieves a pin by ID
func (h *PinHandler) GetPin(c echo.Context) error {
	pin, err := h.pinRepository.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, pin)
}

// NearbyPins lists pins around lat/lon, nearest first
func (h *PinHandler) NearbyPins(c echo.Context) error {
	if c.QueryParam("lat") == "" || c.QueryParam("lon") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lon are required")
	}

	var q models.NearbyPinsQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}
	if q.RadiusMeters == 0 {
		q.RadiusMeters = defaultNearbyRadiusMeters
	}
	if q.Limit == 0 {
		q.Limit = defaultNearbyLimit
	}

	center := models.Point{Latitude: q.Latitude, Longitude: q.Longitude}
	pins, err := h.pinRepository.Nearby(c.Request().Context(), center, q.RadiusMeters, q.Limit)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, pins)
}

// DeletePin removes one of the caller's pins along with its endorsements
func (h *PinHandler) DeletePin(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	pinID := c.Param("id")
	ctx := c.Request().Context()
	if err := h.pinRepository.Delete(ctx, pinID, userID); err != nil {
		return toHTTPError(c, err)
	}

	// The pin is gone already; orphaned endorsements are harmless
	if err := h.endorsementRepository.DeleteByPinID(ctx, pinID); err != nil {
		logging.Warn().Err(err).Str("pin_id", pinID).Msg("failed to delete endorsements of removed pin")
	}
	return c.NoContent(http.StatusNoContent)
}
