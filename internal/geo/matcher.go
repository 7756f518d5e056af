package geo

import "github.com/anonto42/pinpoint/backend/internal/models"

// Matcher tests a point against a zone snapshot.
//
// It is a linear scan over every zone with no spatial index. Zone cardinality is
// bounded by the per-user limit, so O(Z) per pin is fine at the expected scale.
// Zones are matched on distance alone: the pin category is never compared with the
// zone category, and a zone owned by the pin's author still matches.
type Matcher struct{}

// NewMatcher creates a Matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match returns one result per zone whose center lies within radius of point,
// boundary inclusive. Results keep the order of zones.
func (m *Matcher) Match(pinID string, point models.Point, zones []models.WatchZone) []models.MatchResult {
	if len(zones) == 0 {
		return nil
	}

	var matches []models.MatchResult
	for _, zone := range zones {
		d := DistanceMeters(point, zone.Center())
		if d > zone.RadiusMeters {
			continue
		}
		matches = append(matches, models.MatchResult{
			ZoneID:         zone.ID,
			OwnerID:        zone.OwnerID,
			ZoneCategory:   zone.Category,
			PinID:          pinID,
			DistanceMeters: d,
		})
	}
	return matches
}
