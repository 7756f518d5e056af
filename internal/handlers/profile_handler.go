package handlers

import (
	"net/http"

	"github.com/anonto42/pinpoint/backend/internal/middleware"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// ProfileHandler serves the authenticated user's own account
type ProfileHandler struct {
	userRepository repositories.UserRepository
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(userRepo repositories.UserRepository) *ProfileHandler {
	return &ProfileHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *ProfileHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
}

// GetProfile retrieves the authenticated user's profile
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
