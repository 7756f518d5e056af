package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	PinsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pinpoint_pins_ingested_total",
			Help: "Pin ingestion attempts by outcome",
		},
		[]string{"result"}, // "created", "invalid", "storage_error"
	)

	ZoneSnapshotErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pinpoint_zone_snapshot_errors_total",
			Help: "Zone snapshot reads that failed after a pin was persisted",
		},
	)

	ZonesScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pinpoint_zones_scanned",
			Help:    "Number of active watch zones scanned per ingested pin",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	ProximityMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pinpoint_proximity_matches_total",
			Help: "Pin/zone pairs where the pin fell inside the zone radius",
		},
	)

	// Dispatch
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pinpoint_notifications_total",
			Help: "Push notification jobs by outcome",
		},
		[]string{"result"}, // "sent", "skipped", "failed"
	)

	PushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pinpoint_push_duration_seconds",
			Help:    "Latency of a single push sink call",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit breaker around the push sink
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pinpoint_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pinpoint_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Token directory cache
	TokenCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pinpoint_token_cache_lookups_total",
			Help: "Device token cache lookups by outcome",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)
)
