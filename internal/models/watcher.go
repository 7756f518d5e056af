package models

import (
	"math"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"gorm.io/gorm"
)

// MaxRadiusMeters caps how large a single watch zone may be.
const MaxRadiusMeters = 50000

// WatchZone is a private circular geofence ("watcher") owned by one user (PostgreSQL)
type WatchZone struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	OwnerID      uint           `json:"owner_id" gorm:"index;not null"`
	Category     string         `json:"category" gorm:"size:40;not null"`
	Latitude     float64        `json:"latitude" gorm:"not null"`
	Longitude    float64        `json:"longitude" gorm:"not null"`
	RadiusMeters float64        `json:"radius_meters" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at" gorm:"index"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName keeps the table name used by the mobile client's admin tooling.
func (WatchZone) TableName() string { return "watchers" }

// Center returns the zone center as a Point.
func (z WatchZone) Center() Point {
	return Point{Latitude: z.Latitude, Longitude: z.Longitude}
}

// Validate checks the center, the radius and the category of a zone about to be created.
func (z WatchZone) Validate() error {
	if err := ValidateCategory(z.Category); err != nil {
		return err
	}
	if err := z.Center().Validate(); err != nil {
		return err
	}
	if math.IsNaN(z.RadiusMeters) || math.IsInf(z.RadiusMeters, 0) {
		return apperr.Invalid("radius_meters", "must be a finite number")
	}
	if z.RadiusMeters < 0 || z.RadiusMeters > MaxRadiusMeters {
		return apperr.Invalid("radius_meters", "must be within [0, 50000]")
	}
	return nil
}

// CreateWatcherRequest defines the request body for creating a watch zone
type CreateWatcherRequest struct {
	Category     string   `json:"category" validate:"required,max=40"`
	Latitude     *float64 `json:"latitude" validate:"required,latitude"`
	Longitude    *float64 `json:"longitude" validate:"required,longitude"`
	RadiusMeters *float64 `json:"radius_meters" validate:"required,gte=0,lte=50000"`
}
