package models

import "time"

// DeviceToken is the push token registered by a user's most recent device (PostgreSQL)
type DeviceToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	Token     string    `json:"token" gorm:"not null"`
	Platform  string    `json:"platform" gorm:"size:16"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterDeviceRequest defines the request body for PUT /devices
type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,oneof=ios android web"`
}
