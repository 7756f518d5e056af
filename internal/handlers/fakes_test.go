package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/middleware"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"github.com/anonto42/pinpoint/backend/validators"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeUsers struct {
	mu    sync.Mutex
	users map[uint]*models.User
	next  uint
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[uint]*models.User{}} }

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return apperr.ErrConflict
		}
	}
	f.next++
	u.ID = f.next
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == uid })
}

func (f *fakeUsers) UpdateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

type fakePins struct {
	pins      map[string]models.Pin
	nearbyErr error
	lastQuery struct {
		center models.Point
		radius float64
		limit  int64
	}
}

func newFakePins(pins ...models.Pin) *fakePins {
	f := &fakePins{pins: map[string]models.Pin{}}
	for _, p := range pins {
		f.pins[p.ID] = p
	}
	return f
}

func (f *fakePins) Insert(_ context.Context, pin *models.Pin) (string, error) {
	pin.ID = fmt.Sprintf("pin-%d", len(f.pins)+1)
	f.pins[pin.ID] = *pin
	return pin.ID, nil
}

func (f *fakePins) GetByID(_ context.Context, id string) (*models.Pin, error) {
	p, ok := f.pins[id]
	if !ok {
		return nil, fmt.Errorf("pin %s: %w", id, apperr.ErrNotFound)
	}
	return &p, nil
}

func (f *fakePins) Nearby(_ context.Context, center models.Point, radius float64, limit int64) ([]models.Pin, error) {
	f.lastQuery.center, f.lastQuery.radius, f.lastQuery.limit = center, radius, limit
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	out := []models.Pin{}
	for _, p := range f.pins {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePins) Delete(_ context.Context, id string, ownerID uint) error {
	p, ok := f.pins[id]
	if !ok {
		return fmt.Errorf("pin %s: %w", id, apperr.ErrNotFound)
	}
	if p.OwnerID != ownerID {
		return fmt.Errorf("pin %s: %w", id, apperr.ErrForbidden)
	}
	delete(f.pins, id)
	return nil
}

func (f *fakePins) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }
func (f *fakePins) EnsureIndexes(context.Context) error                       { return nil }

type fakeEndorsements struct {
	byPin map[string][]uint
}

func newFakeEndorsements() *fakeEndorsements {
	return &fakeEndorsements{byPin: map[string][]uint{}}
}

func (f *fakeEndorsements) CreateEndorsement(_ context.Context, e *models.Endorsement) error {
	for _, u := range f.byPin[e.PinID] {
		if u == e.UserID {
			return apperr.ErrAlreadyEndorsed
		}
	}
	f.byPin[e.PinID] = append(f.byPin[e.PinID], e.UserID)
	return nil
}

func (f *fakeEndorsements) DeleteEndorsement(_ context.Context, pinID string, userID uint) error {
	users := f.byPin[pinID]
	for i, u := range users {
		if u == userID {
			f.byPin[pinID] = append(users[:i], users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("endorsement: %w", apperr.ErrNotFound)
}

func (f *fakeEndorsements) HasUserEndorsedPin(_ context.Context, pinID string, userID uint) (bool, error) {
	for _, u := range f.byPin[pinID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEndorsements) GetEndorsersByPinID(_ context.Context, pinID string) ([]uint, error) {
	return f.byPin[pinID], nil
}

func (f *fakeEndorsements) DeleteByPinID(_ context.Context, pinID string) error {
	delete(f.byPin, pinID)
	return nil
}

type fakeWatchers struct {
	zones []models.WatchZone
	next  uint
}

func (f *fakeWatchers) CreateWithinLimit(_ context.Context, zone *models.WatchZone, limit int) error {
	owned, _ := f.ListByOwner(context.Background(), zone.OwnerID)
	if len(owned) >= limit {
		return fmt.Errorf("user %d: %w", zone.OwnerID, apperr.ErrZoneLimit)
	}
	f.next++
	zone.ID = f.next
	f.zones = append(f.zones, *zone)
	return nil
}

func (f *fakeWatchers) ListActive(context.Context) ([]models.WatchZone, error) {
	return f.zones, nil
}

func (f *fakeWatchers) ListByOwner(_ context.Context, ownerID uint) ([]models.WatchZone, error) {
	var out []models.WatchZone
	for _, z := range f.zones {
		if z.OwnerID == ownerID {
			out = append(out, z)
		}
	}
	return out, nil
}

func (f *fakeWatchers) Delete(_ context.Context, id, ownerID uint) error {
	for i, z := range f.zones {
		if z.ID != id {
			continue
		}
		if z.OwnerID != ownerID {
			return apperr.ErrForbidden
		}
		f.zones = append(f.zones[:i], f.zones[i+1:]...)
		return nil
	}
	return apperr.ErrNotFound
}

func (f *fakeWatchers) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type fakeDevices struct {
	tokens map[uint]string
	err    error
}

func (f *fakeDevices) Upsert(_ context.Context, userID uint, token, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.tokens[userID] = token
	return nil
}

func (f *fakeDevices) Delete(_ context.Context, userID uint) error {
	delete(f.tokens, userID)
	return nil
}

func (f *fakeDevices) Lookup(_ context.Context, userID uint) (string, bool, error) {
	t, ok := f.tokens[userID]
	return t, ok, nil
}

type fakeIngestor struct {
	got []models.PinInput
	err error
}

func (f *fakeIngestor) Ingest(_ context.Context, in models.PinInput) (models.IngestResult, error) {
	if f.err != nil {
		return models.IngestResult{}, f.err
	}
	if err := in.Validate(); err != nil {
		return models.IngestResult{}, err
	}
	f.got = append(f.got, in)
	return models.IngestResult{PinID: "6530f1c2a1b2c3d4e5f60718"}, nil
}

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	tok, ok := f.tokens[idToken]
	if !ok {
		return nil, fmt.Errorf("bad token")
	}
	return tok, nil
}

// newTestEcho returns an Echo instance with the validator installed and a
// JWT protected /api/v1 group.
func newTestEcho() (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.Validator = validators.NewValidator()
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(testSecret))
	return e, api
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func doRequest(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
