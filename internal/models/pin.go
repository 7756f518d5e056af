package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
)

const maxCategoryLength = 40

// Pin is a public, geotagged incident report stored in MongoDB.
type Pin struct {
	ID        string    `json:"id"`
	OwnerID   uint      `json:"owner_id"`
	Category  string    `json:"category"`
	Location  Point     `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// PinInput is what a caller submits to create a pin.
type PinInput struct {
	OwnerID  uint
	Category string
	Location Point
}

// Validate checks the category and coordinates. OwnerID comes from the
// authenticated session and is not checked here.
func (in PinInput) Validate() error {
	if err := ValidateCategory(in.Category); err != nil {
		return err
	}
	return in.Location.Validate()
}

// ValidateCategory requires a non-blank category of at most maxCategoryLength
// characters, counted the same way as the request validator's max tag.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return apperr.Invalid("category", "is required")
	}
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return apperr.Invalid("category", "is too long")
	}
	return nil
}

// CreatePinRequest defines the request body for creating a new pin
type CreatePinRequest struct {
	Category  string   `json:"category" validate:"required,max=40"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// NearbyPinsQuery is bound from the query string of GET /pins/nearby
type NearbyPinsQuery struct {
	Latitude     float64 `query:"lat" validate:"latitude"`
	Longitude    float64 `query:"lon" validate:"longitude"`
	RadiusMeters float64 `query:"radius" validate:"omitempty,gt=0,lte=50000"`
	Limit        int64   `query:"limit" validate:"omitempty,min=1,max=100"`
}
