package repositories

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
	"gorm.io/gorm"
)

// WatcherRepository defines the interface for watch zone data operations
type WatcherRepository interface {
	CreateWithinLimit(ctx context.Context, zone *models.WatchZone, limit int) error
	ListActive(ctx context.Context) ([]models.WatchZone, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.WatchZone, error)
	Delete(ctx context.Context, id, ownerID uint) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresWatcherRepository implements WatcherRepository for PostgreSQL
type PostgresWatcherRepository struct {
	db *gorm.DB
}

// NewPostgresWatcherRepository creates a new PostgresWatcherRepository
func NewPostgresWatcherRepository(db *gorm.DB) *PostgresWatcherRepository {
	return &PostgresWatcherRepository{db: db}
}

// CreateWithinLimit inserts zone unless its owner already has limit active zones,
// in which case apperr.ErrZoneLimit is returned. On PostgreSQL the count and the
// insert run under a per-owner advisory lock so two concurrent requests cannot
// both slip under the limit.
func (r *PostgresWatcherRepository) CreateWithinLimit(ctx context.Context, zone *models.WatchZone, limit int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", watcherLockKey(zone.OwnerID)).Error; err != nil {
				return err
			}
		}

		var active int64
		if err := tx.Model(&models.WatchZone{}).Where("owner_id = ?", zone.OwnerID).Count(&active).Error; err != nil {
			return err
		}
		if active >= int64(limit) {
			return fmt.Errorf("user %d has %d active zones: %w", zone.OwnerID, active, apperr.ErrZoneLimit)
		}

		return tx.Create(zone).Error
	})
	return apperr.Storage("create watcher", err)
}

// advisoryWatcherNamespace keeps watcher locks apart from any other advisory lock user.
const advisoryWatcherNamespace = "pinpoint:watch_zone_limit"

// watcherLockKey maps an owner to a bigint advisory lock key. The full 64-bit
// owner id is hashed, so ids that differ only above bit 31 get different locks.
// A hash collision only serialises two owners' zone creation.
func watcherLockKey(ownerID uint) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(advisoryWatcherNamespace))
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], uint64(ownerID))
	_, _ = h.Write(id[:])
	return int64(h.Sum64())
}

// ListActive returns every zone that has not been deleted
func (r *PostgresWatcherRepository) ListActive(ctx context.Context) ([]models.WatchZone, error) {
	var zones []models.WatchZone
	if err := r.db.WithContext(ctx).Find(&zones).Error; err != nil {
		return nil, apperr.Storage("list active watchers", err)
	}
	return zones, nil
}

// ListByOwner returns the active zones of a single user, newest first
func (r *PostgresWatcherRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.WatchZone, error) {
	var zones []models.WatchZone
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&zones).Error; err != nil {
		return nil, apperr.Storage("list watchers", err)
	}
	return zones, nil
}

// Delete soft-deletes a zone owned by ownerID
func (r *PostgresWatcherRepository) Delete(ctx context.Context, id, ownerID uint) error {
	var zone models.WatchZone
	if err := r.db.WithContext(ctx).First(&zone, id).Error; err != nil {
		return notFoundOr("get watcher", err)
	}
	if zone.OwnerID != ownerID {
		return fmt.Errorf("watcher %d: %w", id, apperr.ErrForbidden)
	}
	return apperr.Storage("delete watcher", r.db.WithContext(ctx).Delete(&zone).Error)
}

// DeleteOlderThan permanently removes zones created before cutoff, along with
// zones that were soft-deleted earlier.
func (r *PostgresWatcherRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("created_at < ? OR deleted_at IS NOT NULL", cutoff).
		Delete(&models.WatchZone{})
	if res.Error != nil {
		return 0, apperr.Storage("sweep watchers", res.Error)
	}
	return res.RowsAffected, nil
}
