package models

// MatchResult is a pin that fell inside a watch zone. It is computed at ingestion
// time and never stored.
type MatchResult struct {
	ZoneID         uint    `json:"zone_id"`
	OwnerID        uint    `json:"owner_id"`
	ZoneCategory   string  `json:"zone_category"`
	PinID          string  `json:"pin_id"`
	DistanceMeters float64 `json:"distance_meters"`
}

// NotificationJob is one outbound push. Fire-and-forget, never stored.
type NotificationJob struct {
	RecipientDeviceToken string
	Title                string
	Body                 string
}

// IngestResult is returned to the caller once the pin is durable.
type IngestResult struct {
	PinID string `json:"pin_id"`
}
