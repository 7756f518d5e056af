package models

import (
	"math"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects non-finite values and coordinates outside [-90,90] / [-180,180].
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) {
		return apperr.Invalid("latitude", "must be a finite number")
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		return apperr.Invalid("longitude", "must be a finite number")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return apperr.Invalid("latitude", "must be within [-90, 90]")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return apperr.Invalid("longitude", "must be within [-180, 180]")
	}
	return nil
}
