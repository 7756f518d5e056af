package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/geo"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPins struct {
	mu   sync.Mutex
	pins []models.Pin
	err  error
}

func (m *memPins) Insert(_ context.Context, pin *models.Pin) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins = append(m.pins, *pin)
	return "pin-" + string(rune('a'+len(m.pins)-1)), nil
}

type fakeZones struct {
	zones []models.WatchZone
	err   error
	calls int
}

func (f *fakeZones) ActiveZones(context.Context) ([]models.WatchZone, error) {
	f.calls++
	return f.zones, f.err
}

type dispatched struct {
	matches     []models.MatchResult
	pinCategory string
}

type recordingDispatcher struct {
	mu      sync.Mutex
	calls   []dispatched
	ctxErrs []error
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, matches []models.MatchResult, pinCategory string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, dispatched{matches, pinCategory})
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
}

type panickyMatcher struct{}

func (panickyMatcher) Match(string, models.Point, []models.WatchZone) []models.MatchResult {
	panic("index out of range")
}

func zone(id, owner uint, category string, lat, lon, radius float64) models.WatchZone {
	return models.WatchZone{ID: id, OwnerID: owner, Category: category, Latitude: lat, Longitude: lon, RadiusMeters: radius}
}

func newTestService(pins *memPins, zones *fakeZones, d *recordingDispatcher) *Service {
	s := NewService(pins, zones, geo.NewMatcher(), d)
	s.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestIngestMatchesAndDispatches(t *testing.T) {
	pins := &memPins{}
	zones := &fakeZones{zones: []models.WatchZone{
		zone(1, 7, "accident", 36.97, -122.03, 200),
		zone(2, 8, "police", 37.10, -122.03, 200),
	}}
	d := &recordingDispatcher{}

	res, err := newTestService(pins, zones, d).Ingest(context.Background(), models.PinInput{
		OwnerID:  3,
		Category: " police ",
		Location: models.Point{Latitude: 36.9705, Longitude: -122.0295},
	})
	require.NoError(t, err)
	assert.Equal(t, "pin-a", res.PinID)

	require.Len(t, pins.pins, 1)
	assert.Equal(t, "police", pins.pins[0].Category)
	assert.Equal(t, uint(3), pins.pins[0].OwnerID)
	assert.Equal(t, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), pins.pins[0].CreatedAt)

	require.Len(t, d.calls, 1)
	assert.Equal(t, "police", d.calls[0].pinCategory)
	require.Len(t, d.calls[0].matches, 1)
	assert.Equal(t, uint(1), d.calls[0].matches[0].ZoneID)
	assert.Equal(t, "pin-a", d.calls[0].matches[0].PinID)
}

func TestIngestFarPinDoesNotDispatch(t *testing.T) {
	zones := &fakeZones{zones: []models.WatchZone{zone(1, 7, "accident", 36.97, -122.03, 200)}}
	d := &recordingDispatcher{}

	_, err := newTestService(&memPins{}, zones, d).Ingest(context.Background(), models.PinInput{
		OwnerID: 3, Category: "police", Location: models.Point{Latitude: 37.00, Longitude: -122.03},
	})
	require.NoError(t, err)
	assert.Empty(t, d.calls)
}

func TestIngestNoZonesNoDispatch(t *testing.T) {
	zones := &fakeZones{}
	d := &recordingDispatcher{}

	_, err := newTestService(&memPins{}, zones, d).Ingest(context.Background(), models.PinInput{
		OwnerID: 3, Category: "police", Location: models.Point{Latitude: 36.97, Longitude: -122.03},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, zones.calls)
	assert.Empty(t, d.calls)
}

func TestIngestSelfMatch(t *testing.T) {
	zones := &fakeZones{zones: []models.WatchZone{zone(1, 3, "accident", 36.97, -122.03, 200)}}
	d := &recordingDispatcher{}

	_, err := newTestService(&memPins{}, zones, d).Ingest(context.Background(), models.PinInput{
		OwnerID: 3, Category: "accident", Location: models.Point{Latitude: 36.97, Longitude: -122.03},
	})
	require.NoError(t, err)
	require.Len(t, d.calls, 1)
	require.Len(t, d.calls[0].matches, 1)
	assert.Equal(t, uint(3), d.calls[0].matches[0].OwnerID, "the author's own zone still matches")
}

func TestIngestValidationErrorPersistsNothing(t *testing.T) {
	pins := &memPins{}
	zones := &fakeZones{}
	d := &recordingDispatcher{}
	svc := newTestService(pins, zones, d)

	for _, in := range []models.PinInput{
		{OwnerID: 1, Category: "police", Location: models.Point{Latitude: 91, Longitude: 0}},
		{OwnerID: 1, Category: "police", Location: models.Point{Latitude: 0, Longitude: -181}},
		{OwnerID: 1, Category: "", Location: models.Point{Latitude: 0, Longitude: 0}},
	} {
		_, err := svc.Ingest(context.Background(), in)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	}

	assert.Empty(t, pins.pins)
	assert.Zero(t, zones.calls)
	assert.Empty(t, d.calls)
}

func TestIngestStorageErrorIsReturned(t *testing.T) {
	cause := errors.New("mongo: no reachable servers")
	zones := &fakeZones{}
	d := &recordingDispatcher{}

	_, err := newTestService(&memPins{err: cause}, zones, d).Ingest(context.Background(), models.PinInput{
		OwnerID: 1, Category: "police", Location: models.Point{Latitude: 36.97, Longitude: -122.03},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsStorage(err))
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, zones.calls, "no matching without a stored pin")
	assert.Empty(t, d.calls)
}

func TestIngestSnapshotFailureStillSucceeds(t *testing.T) {
	pins := &memPins{}
	zones := &fakeZones{err: errors.New("postgres: too many connections")}
	d := &recordingDispatcher{}

	res, err := newTestService(pins, zones, d).Ingest(context.Background(), models.PinInput{
		OwnerID: 1, Category: "police", Location: models.Point{Latitude: 36.97, Longitude: -122.03},
	})
	require.NoError(t, err)
	assert.Equal(t, "pin-a", res.PinID)
	assert.Len(t, pins.pins, 1)
	assert.Empty(t, d.calls)
}

func TestIngestMatcherPanicStillSucceeds(t *testing.T) {
	pins := &memPins{}
	zones := &fakeZones{zones: []models.WatchZone{zone(1, 7, "accident", 36.97, -122.03, 200)}}
	d := &recordingDispatcher{}

	svc := NewService(pins, zones, panickyMatcher{}, d)
	res, err := svc.Ingest(context.Background(), models.PinInput{
		OwnerID: 1, Category: "police", Location: models.Point{Latitude: 36.97, Longitude: -122.03},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.PinID)
	assert.Empty(t, d.calls)
}

func TestIngestConcurrentPins(t *testing.T) {
	pins := &memPins{}
	zones := &fakeZones{zones: []models.WatchZone{zone(1, 7, "accident", 36.97, -122.03, 200)}}
	d := &recordingDispatcher{}
	svc := NewService(pins, &lockedZones{inner: zones}, geo.NewMatcher(), d)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ingest(context.Background(), models.PinInput{
				OwnerID: 1, Category: "police", Location: models.Point{Latitude: 36.97, Longitude: -122.03},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, pins.pins, 20)
	assert.Len(t, d.calls, 20, "every pin gets its own fan-out")
}

type lockedZones struct {
	mu    sync.Mutex
	inner *fakeZones
}

func (l *lockedZones) ActiveZones(ctx context.Context) ([]models.WatchZone, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.ActiveZones(ctx)
}

// cancellingPins simulates a client that disconnects right after the pin write.
type cancellingPins struct {
	memPins
	cancel context.CancelFunc
}

func (c *cancellingPins) Insert(ctx context.Context, pin *models.Pin) (string, error) {
	id, err := c.memPins.Insert(ctx, pin)
	c.cancel()
	return id, err
}

type ctxAwareZones struct{ fakeZones }

func (z *ctxAwareZones) ActiveZones(ctx context.Context) ([]models.WatchZone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return z.fakeZones.ActiveZones(ctx)
}

func TestIngestNotifiesAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pins := &cancellingPins{cancel: cancel}
	zones := &ctxAwareZones{fakeZones{zones: []models.WatchZone{zone(1, 7, "accident", 36.97, -122.03, 200)}}}
	d := &recordingDispatcher{}

	// about 60 m from the zone centre
	svc := NewService(pins, zones, geo.NewMatcher(), d)
	res, err := svc.Ingest(ctx, models.PinInput{
		OwnerID: 3, Category: "police", Location: models.Point{Latitude: 36.97054, Longitude: -122.03},
	})
	require.NoError(t, err)
	assert.Equal(t, "pin-a", res.PinID)
	require.Error(t, ctx.Err())

	assert.Equal(t, 1, zones.calls)
	require.Len(t, d.calls, 1)
	require.Len(t, d.calls[0].matches, 1)
	assert.Equal(t, uint(1), d.calls[0].matches[0].ZoneID)
	assert.NoError(t, d.ctxErrs[0], "dispatch must not inherit the caller's cancellation")
}
