package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var santaCruz = models.Point{Latitude: 36.97, Longitude: -122.03}

func zoneAt(id, owner uint, category string, center models.Point, radius float64) models.WatchZone {
	return models.WatchZone{
		ID:           id,
		OwnerID:      owner,
		Category:     category,
		Latitude:     center.Latitude,
		Longitude:    center.Longitude,
		RadiusMeters: radius,
	}
}

func TestDistanceMeters(t *testing.T) {
	oneDegree := DistanceMeters(models.Point{Latitude: 0, Longitude: 0}, models.Point{Latitude: 1, Longitude: 0})
	assert.InDelta(t, 2*math.Pi*EarthRadiusMeters/360, oneDegree, 0.01)

	assert.Zero(t, DistanceMeters(santaCruz, santaCruz))

	antipodal := DistanceMeters(models.Point{Latitude: 0, Longitude: 0}, models.Point{Latitude: 0, Longitude: 180})
	assert.InDelta(t, math.Pi*EarthRadiusMeters, antipodal, 0.01)

	a := models.Point{Latitude: 51.5074, Longitude: -0.1278}
	b := models.Point{Latitude: 48.8566, Longitude: 2.3522}
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
	assert.InDelta(t, 343_500, DistanceMeters(a, b), 1_500, "London to Paris")
}

func TestMatchSantaCruzScenario(t *testing.T) {
	m := NewMatcher()
	zones := []models.WatchZone{zoneAt(1, 7, "accident", santaCruz, 200)}

	near := models.Point{Latitude: 36.9705, Longitude: -122.0295}
	matches := m.Match("pin-near", near, zones)
	require.Len(t, matches, 1)
	assert.Equal(t, uint(1), matches[0].ZoneID)
	assert.Equal(t, uint(7), matches[0].OwnerID)
	assert.Equal(t, "accident", matches[0].ZoneCategory)
	assert.Equal(t, "pin-near", matches[0].PinID)
	assert.Less(t, matches[0].DistanceMeters, 100.0)

	far := models.Point{Latitude: 37.00, Longitude: -122.03}
	assert.InDelta(t, 3336, DistanceMeters(far, santaCruz), 10)
	assert.Empty(t, m.Match("pin-far", far, zones))
}

func TestMatchBoundaryIsInclusive(t *testing.T) {
	m := NewMatcher()
	p := models.Point{Latitude: 36.9712, Longitude: -122.0288}
	d := DistanceMeters(p, santaCruz)

	onEdge := []models.WatchZone{zoneAt(1, 1, "police", santaCruz, d)}
	assert.Len(t, m.Match("pin", p, onEdge), 1, "distance equal to radius must match")

	justInside := []models.WatchZone{zoneAt(1, 1, "police", santaCruz, math.Nextafter(d, 0))}
	assert.Empty(t, m.Match("pin", p, justInside))
}

func TestMatchZeroRadius(t *testing.T) {
	m := NewMatcher()
	zones := []models.WatchZone{zoneAt(1, 1, "fire", santaCruz, 0)}

	assert.Len(t, m.Match("pin", santaCruz, zones), 1)
	assert.Empty(t, m.Match("pin", models.Point{Latitude: 36.97001, Longitude: -122.03}, zones))
}

func TestMatchNoZones(t *testing.T) {
	assert.Empty(t, NewMatcher().Match("pin", santaCruz, nil))
	assert.Empty(t, NewMatcher().Match("pin", santaCruz, []models.WatchZone{}))
}

func TestMatchIgnoresCategory(t *testing.T) {
	zones := []models.WatchZone{
		zoneAt(1, 1, "accident", santaCruz, 500),
		zoneAt(2, 2, "police", santaCruz, 500),
	}
	matches := NewMatcher().Match("pin", santaCruz, zones)
	require.Len(t, matches, 2)
	assert.Equal(t, "accident", matches[0].ZoneCategory)
	assert.Equal(t, "police", matches[1].ZoneCategory)
}

func TestMatchSameOwnerTwice(t *testing.T) {
	zones := []models.WatchZone{
		zoneAt(10, 5, "accident", santaCruz, 300),
		zoneAt(11, 5, "police", models.Point{Latitude: 36.971, Longitude: -122.03}, 300),
	}
	matches := NewMatcher().Match("pin", santaCruz, zones)
	require.Len(t, matches, 2)
	assert.Equal(t, matches[0].OwnerID, matches[1].OwnerID)
	assert.NotEqual(t, matches[0].ZoneID, matches[1].ZoneID)
}

func TestMatchGrowsLinearly(t *testing.T) {
	if testing.Short() {
		t.Skip("timing characterisation")
	}

	m := NewMatcher()
	measure := func(n int) time.Duration {
		zones := make([]models.WatchZone, n)
		for i := range zones {
			zones[i] = zoneAt(uint(i), uint(i), "x", models.Point{Latitude: float64(i%180) - 89.5, Longitude: float64(i%360) - 179.5}, 1000)
		}
		best := time.Duration(math.MaxInt64)
		for run := 0; run < 5; run++ {
			start := time.Now()
			for rep := 0; rep < 20; rep++ {
				m.Match("pin", santaCruz, zones)
			}
			if elapsed := time.Since(start); elapsed < best {
				best = elapsed
			}
		}
		return best
	}

	small := measure(2_000)
	large := measure(20_000)

	// Linear growth gives a ratio near 10, quadratic near 100.
	ratio := float64(large) / float64(small)
	assert.Less(t, ratio, 35.0, "10x zones took %.1fx longer", ratio)
}

func BenchmarkMatch(b *testing.B) {
	m := NewMatcher()
	for _, n := range []int{100, 1_000, 10_000} {
		zones := make([]models.WatchZone, n)
		for i := range zones {
			zones[i] = zoneAt(uint(i), uint(i), "x", santaCruz, float64(i))
		}
		b.Run(fmt.Sprintf("zones=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				m.Match("pin", santaCruz, zones)
			}
		})
	}
}

type stubZoneStore struct {
	zones []models.WatchZone
	err   error
}

func (s stubZoneStore) ListActive(context.Context) ([]models.WatchZone, error) {
	return s.zones, s.err
}

func TestIndexActiveZones(t *testing.T) {
	zones := []models.WatchZone{zoneAt(1, 1, "accident", santaCruz, 100)}
	got, err := NewIndex(stubZoneStore{zones: zones}).ActiveZones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, zones, got)
}

func TestIndexActiveZonesStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	_, err := NewIndex(stubZoneStore{err: cause}).ActiveZones(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))
	assert.ErrorIs(t, err, cause)
}
