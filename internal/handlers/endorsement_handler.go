package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/middleware"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// EndorsementHandler handles HTTP requests related to endorsements
type EndorsementHandler struct {
	endorsementRepository repositories.EndorsementRepository
	pinRepository         repositories.PinRepository
}

// NewEndorsementHandler creates a new EndorsementHandler
func NewEndorsementHandler(endorsementRepo repositories.EndorsementRepository, pinRepo repositories.PinRepository) *EndorsementHandler {
	return &EndorsementHandler{
		endorsementRepository: endorsementRepo,
		pinRepository:         pinRepo,
	}
}

// RegisterEndorsementRoutes registers endorsement-related routes
func (h *EndorsementHandler) RegisterEndorsementRoutes(g *echo.Group) {
	g.POST("/pins/:id/endorsements", h.EndorsePin)
	g.DELETE("/pins/:id/endorsements", h.RemoveEndorsement)
	g.GET("/pins/:id/endorsements", h.ListEndorsements)
}

// EndorsePin records that the caller vouches for a pin
func (h *EndorsementHandler) EndorsePin(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	pinID := c.Param("id")
	ctx := c.Request().Context()
	if _, err := h.pinRepository.GetByID(ctx, pinID); err != nil {
		return toHTTPError(c, err)
	}

	endorsement := &models.Endorsement{
		PinID:     pinID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.endorsementRepository.CreateEndorsement(ctx, endorsement); err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, endorsement)
}

// RemoveEndorsement withdraws the caller's endorsement
func (h *EndorsementHandler) RemoveEndorsement(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.endorsementRepository.DeleteEndorsement(c.Request().Context(), c.Param("id"), userID); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListEndorsements returns who endorsed a pin
func (h *EndorsementHandler) ListEndorsements(c echo.Context) error {
	pinID := c.Param("id")
	ctx := c.Request().Context()
	if _, err := h.pinRepository.GetByID(ctx, pinID); err != nil {
		return toHTTPError(c, err)
	}

	endorsers, err := h.endorsementRepository.GetEndorsersByPinID(ctx, pinID)
	if err != nil {
		return toHTTPError(c, err)
	}
	if endorsers == nil {
		endorsers = []uint{}
	}
	return c.JSON(http.StatusOK, models.EndorsementSummary{
		PinID:     pinID,
		Count:     int64(len(endorsers)),
		Endorsers: endorsers,
	})
}
