// Package ingest creates pins and kicks off proximity notifications.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/anonto42/pinpoint/backend/pkg/metrics"
	"github.com/rs/zerolog"
)

// PinStore persists a new pin and returns its id.
type PinStore interface {
	Insert(ctx context.Context, pin *models.Pin) (string, error)
}

// ZoneSnapshotter returns the watch zones active right now.
type ZoneSnapshotter interface {
	ActiveZones(ctx context.Context) ([]models.WatchZone, error)
}

// ProximityMatcher computes which zones contain a point.
type ProximityMatcher interface {
	Match(pinID string, point models.Point, zones []models.WatchZone) []models.MatchResult
}

// Dispatcher sends notifications for matches without blocking the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, matches []models.MatchResult, pinCategory string)
}

// snapshotTimeout bounds the zone read that follows a successful pin write.
const snapshotTimeout = 5 * time.Second

// Service orchestrates pin creation: validate, persist, snapshot zones, match,
// hand off to the dispatcher, return.
type Service struct {
	pins       PinStore
	zones      ZoneSnapshotter
	matcher    ProximityMatcher
	dispatcher Dispatcher
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a pin ingest Service
func NewService(pins PinStore, zones ZoneSnapshotter, matcher ProximityMatcher, dispatcher Dispatcher) *Service {
	return &Service{
		pins:       pins,
		zones:      zones,
		matcher:    matcher,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        logging.With().Str("component", "ingest").Logger(),
	}
}

// Ingest validates and stores a pin, then launches notifications for every zone
// containing it. Only validation and the pin write can fail the call; once the pin
// is stored, problems with the zone snapshot are logged and the pin id is still
// returned.
func (s *Service) Ingest(ctx context.Context, in models.PinInput) (models.IngestResult, error) {
	in.Category = strings.TrimSpace(in.Category)
	if err := in.Validate(); err != nil {
		metrics.PinsIngested.WithLabelValues("invalid").Inc()
		return models.IngestResult{}, err
	}

	pin := &models.Pin{
		OwnerID:   in.OwnerID,
		Category:  in.Category,
		Location:  in.Location,
		CreatedAt: s.now().UTC(),
	}

	pinID, err := s.pins.Insert(ctx, pin)
	if err != nil {
		metrics.PinsIngested.WithLabelValues("storage_error").Inc()
		return models.IngestResult{}, apperr.Storage("insert pin", err)
	}
	pin.ID = pinID
	metrics.PinsIngested.WithLabelValues("created").Inc()

	s.notify(ctx, pin)

	return models.IngestResult{PinID: pinID}, nil
}

func (s *Service) notify(ctx context.Context, pin *models.Pin) {
	log := s.log.With().Str("pin_id", pin.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("proximity matching panicked; pin kept")
		}
	}()

	// the pin is already stored, so a caller going away must not stop matching
	ctx = context.WithoutCancel(ctx)
	snapCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	zones, err := s.zones.ActiveZones(snapCtx)
	if err != nil {
		metrics.ZoneSnapshotErrors.Inc()
		log.Error().Err(err).Msg("zone snapshot failed; pin kept, no notifications sent")
		return
	}
	metrics.ZonesScanned.Observe(float64(len(zones)))

	matches := s.matcher.Match(pin.ID, pin.Location, zones)
	if len(matches) == 0 {
		return
	}
	metrics.ProximityMatches.Add(float64(len(matches)))
	log.Info().Int("zones", len(zones)).Int("matches", len(matches)).Msg("pin matched watch zones")

	s.dispatcher.Dispatch(ctx, matches, pin.Category)
}
