package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// userContextKey is where the verified claims are stored on the echo.Context
const userContextKey = "user"

// JWTAuthMiddleware checks for a valid JWT signed with secret and stores the claims.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrSignatureInvalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			if !token.Valid || claims.UserID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set(userContextKey, claims)
			return next(c)
		}
	}
}

// SetUser stores claims on c the way JWTAuthMiddleware does.
func SetUser(c echo.Context, claims *models.JwtCustomClaims) {
	c.Set(userContextKey, claims)
}

// UserIDFromContext returns the authenticated user's id.
func UserIDFromContext(c echo.Context) (uint, error) {
	claims, ok := c.Get(userContextKey).(*models.JwtCustomClaims)
	if !ok || claims == nil || claims.UserID == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Unauthenticated")
	}
	return claims.UserID, nil
}
