// Package notify turns proximity matches into push notifications.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/anonto42/pinpoint/backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const notificationTitle = "PinPoint alert"

// TokenDirectory resolves a user to their registered push token. A user without a
// token yields ok=false and no error.
type TokenDirectory interface {
	Lookup(ctx context.Context, userID uint) (token string, ok bool, err error)
}

// DispatcherConfig tunes a Dispatcher.
type DispatcherConfig struct {
	// SendTimeout bounds each token lookup plus push. Default 5s.
	SendTimeout time.Duration
	// Concurrency bounds in-flight jobs per batch. Default 16.
	Concurrency int
}

// Dispatcher fans matches out to the push sink in the background.
type Dispatcher struct {
	tokens TokenDirectory
	sink   PushSink
	cfg    DispatcherConfig
	log    zerolog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(tokens TokenDirectory, sink PushSink, cfg DispatcherConfig) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return &Dispatcher{
		tokens: tokens,
		sink:   sink,
		cfg:    cfg,
		log:    logging.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch launches one notification job per match and returns without waiting.
// Jobs run independently: a failure is logged and never affects another job or
// the caller. Two matches for the same owner produce two notifications.
// Jobs keep the values of ctx but not its cancellation or deadline.
func (d *Dispatcher) Dispatch(ctx context.Context, matches []models.MatchResult, pinCategory string) {
	if len(matches) == 0 {
		return
	}

	base := context.WithoutCancel(ctx)
	batch := uuid.NewString()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(base, batch, matches, pinCategory)
	}()
}

// Wait blocks until every batch launched so far has finished, or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(base context.Context, batch string, matches []models.MatchResult, pinCategory string) {
	log := d.log.With().Str("batch", batch).Str("pin_id", matches[0].PinID).Logger()
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)

	for _, match := range matches {
		g.Go(func() error {
			d.deliver(base, log, match, pinCategory)
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().Int("jobs", len(matches)).Dur("elapsed", time.Since(start)).Msg("dispatch batch finished")
}

// deliver runs a single job. Panics are contained so one bad job cannot take down
// the process or the rest of the batch.
func (d *Dispatcher) deliver(base context.Context, log zerolog.Logger, match models.MatchResult, pinCategory string) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(log, match, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(base, d.cfg.SendTimeout)
	defer cancel()

	token, ok, err := d.tokens.Lookup(ctx, match.OwnerID)
	if err != nil {
		d.fail(log, match, fmt.Errorf("token lookup: %w", err))
		return
	}
	if !ok {
		metrics.NotificationsDispatched.WithLabelValues("skipped").Inc()
		log.Debug().Uint("user_id", match.OwnerID).Uint("zone_id", match.ZoneID).Msg("no device token, skipping")
		return
	}

	job := NewJob(token, pinCategory, match.ZoneCategory)

	sendStart := time.Now()
	err = d.sink.Send(ctx, job.RecipientDeviceToken, job.Title, job.Body)
	metrics.PushDuration.Observe(time.Since(sendStart).Seconds())
	if err != nil {
		d.fail(log, match, err)
		return
	}

	metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
	log.Info().Uint("user_id", match.OwnerID).Uint("zone_id", match.ZoneID).
		Float64("distance_m", match.DistanceMeters).Msg("notification sent")
}

func (d *Dispatcher) fail(log zerolog.Logger, match models.MatchResult, err error) {
	failure := &apperr.DispatchFailure{ZoneID: match.ZoneID, UserID: match.OwnerID, Err: err}
	metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
	log.Warn().Err(failure).Uint("user_id", match.OwnerID).Uint("zone_id", match.ZoneID).Msg("notification failed")
}

// NewJob builds the push payload for one recipient.
func NewJob(token, pinCategory, zoneCategory string) models.NotificationJob {
	return models.NotificationJob{
		RecipientDeviceToken: token,
		Title:                notificationTitle,
		Body:                 fmt.Sprintf("Unconfirmed %s spotted near your %s", pinCategory, zoneCategory),
	}
}
