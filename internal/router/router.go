package router

import (
	"context"
	"fmt"

	"github.com/anonto42/pinpoint/backend/internal/handlers"
	"github.com/anonto42/pinpoint/backend/internal/middleware"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/anonto42/pinpoint/backend/validators"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

// Migrate creates the PostgreSQL tables and the MongoDB indexes.
func Migrate(ctx context.Context, pgdb *gorm.DB, pins repositories.PinRepository) error {
	if err := pgdb.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.WatchZone{},
		&models.Endorsement{},
		&models.DeviceToken{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logging.Info().Msg("PostgreSQL auto-migrations completed")

	if err := pins.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	logging.Info().Msg("MongoDB pin indexes ensured")
	return nil
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, rateLimitRPS float64) {
	e.Validator = validators.NewValidator()
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.RequestIDWithConfig(eMiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger())
	e.Use(eMiddleware.CORS())
	if rateLimitRPS > 0 {
		e.Use(middleware.RateLimiter(rateLimitRPS))
	}
	logging.Debug().Float64("rate_limit_rps", rateLimitRPS).Msg("Global middleware configured")
}

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	Users           repositories.UserRepository
	Pins            repositories.PinRepository
	Watchers        repositories.WatcherRepository
	Endorsements    repositories.EndorsementRepository
	Devices         repositories.DeviceTokenRepository
	Ingestor        handlers.PinIngestor
	FirebaseAuth    handlers.IDTokenVerifier
	JWTSecret       string
	MaxZonesPerUser int
}

// SetupRoutes configures all application routes
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", handlers.Root)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(deps.Users, deps.FirebaseAuth, deps.JWTSecret).RegisterAuthRoutes(authGroup)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))

	handlers.NewProfileHandler(deps.Users).RegisterProfileRoutes(api)
	handlers.NewPinHandler(deps.Ingestor, deps.Pins, deps.Endorsements).RegisterPinRoutes(api)
	handlers.NewEndorsementHandler(deps.Endorsements, deps.Pins).RegisterEndorsementRoutes(api)
	handlers.NewWatcherHandler(deps.Watchers, deps.MaxZonesPerUser).RegisterWatcherRoutes(api)
	handlers.NewDeviceHandler(deps.Devices).RegisterDeviceRoutes(api)

	logging.Info().Int("routes", len(e.Routes())).Msg("All routes configured")
}
