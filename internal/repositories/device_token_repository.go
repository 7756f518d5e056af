package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceTokenRepository stores one push token per user.
type DeviceTokenRepository interface {
	Upsert(ctx context.Context, userID uint, token, platform string) error
	Delete(ctx context.Context, userID uint) error
	Lookup(ctx context.Context, userID uint) (string, bool, error)
}

// PostgresDeviceTokenRepository implements DeviceTokenRepository for PostgreSQL
type PostgresDeviceTokenRepository struct {
	db *gorm.DB
}

// NewPostgresDeviceTokenRepository creates a new PostgresDeviceTokenRepository
func NewPostgresDeviceTokenRepository(db *gorm.DB) *PostgresDeviceTokenRepository {
	return &PostgresDeviceTokenRepository{db: db}
}

// Upsert registers token as the user's current device, replacing any previous one
func (r *PostgresDeviceTokenRepository) Upsert(ctx context.Context, userID uint, token, platform string) error {
	dt := models.DeviceToken{UserID: userID, Token: token, Platform: platform, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "platform", "updated_at"}),
	}).Create(&dt).Error
	return apperr.Storage("upsert device token", err)
}

// Delete forgets the user's device token
func (r *PostgresDeviceTokenRepository) Delete(ctx context.Context, userID uint) error {
	return apperr.Storage("delete device token",
		r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.DeviceToken{}).Error)
}

// Lookup returns the user's token. A user who never registered a device gives ok=false.
func (r *PostgresDeviceTokenRepository) Lookup(ctx context.Context, userID uint) (string, bool, error) {
	var dt models.DeviceToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&dt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Storage("lookup device token", err)
	}
	return dt.Token, dt.Token != "", nil
}
