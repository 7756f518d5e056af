package models

import "time"

// Endorsement is a user's vote of confidence on a pin (PostgreSQL)
type Endorsement struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PinID     string    `json:"pin_id" gorm:"size:24;not null;uniqueIndex:idx_endorsement_pin_user"` // MongoDB ObjectID as hex
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_endorsement_pin_user;index"`
	CreatedAt time.Time `json:"created_at"`
}

// EndorsementSummary is returned by GET /pins/:id/endorsements
type EndorsementSummary struct {
	PinID     string `json:"pin_id"`
	Count     int64  `json:"count"`
	Endorsers []uint `json:"endorsers"`
}
