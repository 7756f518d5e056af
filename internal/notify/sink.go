package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/anonto42/pinpoint/backend/pkg/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// PushSink delivers a single push notification.
type PushSink interface {
	Send(ctx context.Context, token, title, body string) error
}

// FCMSender is the subset of *messaging.Client used by FCMSink.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSink sends notifications through Firebase Cloud Messaging.
type FCMSink struct {
	client FCMSender
}

// NewFCMSink creates a sink backed by a Firebase messaging client
func NewFCMSink(client FCMSender) *FCMSink {
	return &FCMSink{client: client}
}

func (s *FCMSink) Send(ctx context.Context, token, title, body string) error {
	id, err := s.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
	if err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("fcm: token unregistered: %w", err)
		}
		return fmt.Errorf("fcm: %w", err)
	}
	logging.Debug().Str("message_id", id).Msg("push accepted by FCM")
	return nil
}

// LogSink only logs. It stands in for FCM when no Firebase credentials are configured.
type LogSink struct{}

func (LogSink) Send(_ context.Context, token, title, body string) error {
	logging.Info().Str("token_suffix", tokenSuffix(token)).Str("title", title).Str("body", body).Msg("push (log sink)")
	return nil
}

func tokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[len(token)-6:]
}

// BreakerSink guards a PushSink with a circuit breaker so a failing push endpoint
// is not hammered by every new pin.
type BreakerSink struct {
	next PushSink
	cb   *gobreaker.CircuitBreaker[struct{}]
	name string
}

// BreakerSettings tunes BreakerSink. Zero values take the defaults below.
type BreakerSettings struct {
	Name        string
	MinRequests uint32        // default 10
	FailureRate float64       // default 0.6
	Interval    time.Duration // default 1m
	OpenTimeout time.Duration // default 30s
}

// NewBreakerSink wraps next with a circuit breaker
func NewBreakerSink(next PushSink, s BreakerSettings) *BreakerSink {
	if s.Name == "" {
		s.Name = "push-sink"
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRate == 0 {
		s.FailureRate = 0.6
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 3,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerSink{next: next, cb: cb, name: s.Name}
}

func (b *BreakerSink) Send(ctx context.Context, token, title, body string) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, token, title, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s rejected push: %w", b.name, err)
	}
	return err
}

// State exposes the breaker state, mainly for health reporting.
func (b *BreakerSink) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
