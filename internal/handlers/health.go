package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "PinPoint API server is running."})
}

func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pinpoint-api",
	})
}
