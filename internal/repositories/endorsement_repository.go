package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"gorm.io/gorm"
)

// EndorsementRepository defines the interface for endorsement data operations
type EndorsementRepository interface {
	CreateEndorsement(ctx context.Context, e *models.Endorsement) error
	DeleteEndorsement(ctx context.Context, pinID string, userID uint) error
	HasUserEndorsedPin(ctx context.Context, pinID string, userID uint) (bool, error)
	GetEndorsersByPinID(ctx context.Context, pinID string) ([]uint, error)
	DeleteByPinID(ctx context.Context, pinID string) error
}

// PostgresEndorsementRepository implements EndorsementRepository for PostgreSQL
type PostgresEndorsementRepository struct {
	db *gorm.DB
}

// NewPostgresEndorsementRepository creates a new PostgresEndorsementRepository
func NewPostgresEndorsementRepository(db *gorm.DB) *PostgresEndorsementRepository {
	return &PostgresEndorsementRepository{db: db}
}

// CreateEndorsement records an endorsement. Endorsing the same pin twice yields
// apperr.ErrAlreadyEndorsed.
func (r *PostgresEndorsementRepository) CreateEndorsement(ctx context.Context, e *models.Endorsement) error {
	endorsed, err := r.HasUserEndorsedPin(ctx, e.PinID, e.UserID)
	if err != nil {
		return err
	}
	if endorsed {
		return apperr.ErrAlreadyEndorsed
	}

	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrAlreadyEndorsed
		}
		return apperr.Storage("create endorsement", err)
	}
	return nil
}

// DeleteEndorsement removes a user's endorsement of a pin
func (r *PostgresEndorsementRepository) DeleteEndorsement(ctx context.Context, pinID string, userID uint) error {
	res := r.db.WithContext(ctx).Where("pin_id = ? AND user_id = ?", pinID, userID).Delete(&models.Endorsement{})
	if res.Error != nil {
		return apperr.Storage("delete endorsement", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("endorsement: %w", apperr.ErrNotFound)
	}
	return nil
}

// HasUserEndorsedPin checks if a user has endorsed a specific pin
func (r *PostgresEndorsementRepository) HasUserEndorsedPin(ctx context.Context, pinID string, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Endorsement{}).
		Where("pin_id = ? AND user_id = ?", pinID, userID).Count(&count).Error; err != nil {
		return false, apperr.Storage("check endorsement", err)
	}
	return count > 0, nil
}

// GetEndorsersByPinID returns the ids of users who endorsed a pin, oldest first
func (r *PostgresEndorsementRepository) GetEndorsersByPinID(ctx context.Context, pinID string) ([]uint, error) {
	var userIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.Endorsement{}).
		Where("pin_id = ?", pinID).Order("created_at ASC, id ASC").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, apperr.Storage("list endorsers", err)
	}
	return userIDs, nil
}

// DeleteByPinID removes every endorsement of a deleted pin
func (r *PostgresEndorsementRepository) DeleteByPinID(ctx context.Context, pinID string) error {
	return apperr.Storage("delete endorsements",
		r.db.WithContext(ctx).Where("pin_id = ?", pinID).Delete(&models.Endorsement{}).Error)
}
