package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps domain errors onto HTTP status codes. Storage and unknown
// errors are logged and hidden behind a generic 500.
func toHTTPError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrZoneLimit),
		errors.Is(err, apperr.ErrAlreadyEndorsed),
		errors.Is(err, apperr.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	logging.Error().Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
