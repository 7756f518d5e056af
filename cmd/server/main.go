package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/geo"
	"github.com/anonto42/pinpoint/backend/internal/handlers"
	"github.com/anonto42/pinpoint/backend/internal/ingest"
	"github.com/anonto42/pinpoint/backend/internal/notify"
	"github.com/anonto42/pinpoint/backend/internal/repositories"
	"github.com/anonto42/pinpoint/backend/internal/router"
	"github.com/anonto42/pinpoint/backend/pkg/config"
	"github.com/anonto42/pinpoint/backend/pkg/firebase"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize databases")
	}
	defer db.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	watcherRepo := repositories.NewPostgresWatcherRepository(db.Postgres)
	endorsementRepo := repositories.NewPostgresEndorsementRepository(db.Postgres)
	pinRepo := repositories.NewMongoPinRepository(db.Mongo.Database(cfg.MongoDatabase))

	var deviceRepo repositories.DeviceTokenRepository = repositories.NewPostgresDeviceTokenRepository(db.Postgres)
	if db.Redis != nil {
		deviceRepo = repositories.NewCachedDeviceTokenRepository(deviceRepo, db.Redis, cfg.TokenCacheTTL)
	}

	if err := router.Migrate(ctx, db.Postgres, pinRepo); err != nil {
		logging.Fatal().Err(err).Msg("Failed to migrate databases")
	}

	// --- Firebase: login and push delivery ---
	var (
		pushSink     notify.PushSink = notify.LogSink{}
		firebaseAuth handlers.IDTokenVerifier
	)
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case errors.Is(err, firebase.ErrNotConfigured):
		logging.Warn().Msg("Firebase not configured: Firebase login disabled, push notifications are only logged")
	case err != nil:
		logging.Fatal().Err(err).Msg("Failed to initialize Firebase")
	default:
		pushSink = notify.NewFCMSink(firebaseApp.Messaging)
		firebaseAuth = firebaseApp.AuthClient
	}

	// --- Proximity notification pipeline ---
	dispatcher := notify.NewDispatcher(deviceRepo, notify.NewBreakerSink(pushSink, notify.BreakerSettings{Name: "fcm"}),
		notify.DispatcherConfig{
			SendTimeout: cfg.PushTimeout,
			Concurrency: cfg.DispatchConcurrency,
		})
	ingestService := ingest.NewService(pinRepo, geo.NewIndex(watcherRepo), geo.NewMatcher(), dispatcher)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	router.SetupMiddleware(e, cfg.RateLimitRPS)
	router.SetupRoutes(e, router.Dependencies{
		Users:           userRepo,
		Pins:            pinRepo,
		Watchers:        watcherRepo,
		Endorsements:    endorsementRepo,
		Devices:         deviceRepo,
		Ingestor:        ingestService,
		FirebaseAuth:    firebaseAuth,
		JWTSecret:       cfg.JWTSecret,
		MaxZonesPerUser: cfg.MaxZonesPerUser,
	})

	metricsServer := echo.New()
	metricsServer.HideBanner = true
	metricsServer.HidePort = true
	metricsServer.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := metricsServer.Start(":" + cfg.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	go func() {
		logging.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("PinPoint API server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	// let in-flight notifications finish before the stores are closed
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("Gave up waiting for in-flight notifications")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Metrics server shutdown failed")
	}
}
