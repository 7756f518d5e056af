package repositories

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/anonto42/pinpoint/backend/pkg/logging"
	"github.com/anonto42/pinpoint/backend/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// noTokenMarker is cached for users without a device so repeated matches on
// their zones do not hit PostgreSQL every time.
const noTokenMarker = "-"

// CachedDeviceTokenRepository is a Redis cache in front of a DeviceTokenRepository.
// Writes go through to the cache; read misses only fill an empty key (SETNX) so a
// lookup that raced a write can never put an older token back. Redis failures fall
// back to the backing store.
type CachedDeviceTokenRepository struct {
	next DeviceTokenRepository
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedDeviceTokenRepository wraps next with a Redis cache
func NewCachedDeviceTokenRepository(next DeviceTokenRepository, rdb *redis.Client, ttl time.Duration) *CachedDeviceTokenRepository {
	return &CachedDeviceTokenRepository{next: next, rdb: rdb, ttl: ttl}
}

func tokenKey(userID uint) string {
	return "pinpoint:device_token:" + strconv.FormatUint(uint64(userID), 10)
}

func (c *CachedDeviceTokenRepository) Lookup(ctx context.Context, userID uint) (string, bool, error) {
	cached, err := c.rdb.Get(ctx, tokenKey(userID)).Result()
	switch {
	case err == nil:
		metrics.TokenCacheLookups.WithLabelValues("hit").Inc()
		if cached == noTokenMarker {
			return "", false, nil
		}
		return cached, true, nil
	case errors.Is(err, redis.Nil):
		metrics.TokenCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.TokenCacheLookups.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Uint("user_id", userID).Msg("token cache read failed, using database")
	}

	token, ok, err := c.next.Lookup(ctx, userID)
	if err != nil {
		return "", false, err
	}

	value := token
	if !ok {
		value = noTokenMarker
	}
	if err := c.rdb.SetNX(ctx, tokenKey(userID), value, c.ttl).Err(); err != nil {
		logging.Warn().Err(err).Uint("user_id", userID).Msg("token cache fill failed")
	}
	return token, ok, nil
}

func (c *CachedDeviceTokenRepository) Upsert(ctx context.Context, userID uint, token, platform string) error {
	if err := c.next.Upsert(ctx, userID, token, platform); err != nil {
		return err
	}
	c.store(ctx, userID, token)
	return nil
}

func (c *CachedDeviceTokenRepository) Delete(ctx context.Context, userID uint) error {
	if err := c.next.Delete(ctx, userID); err != nil {
		return err
	}
	c.store(ctx, userID, noTokenMarker)
	return nil
}

// store overwrites the cached value after a successful database write. If that
// fails the key is dropped instead, and if both fail the entry is left to expire.
func (c *CachedDeviceTokenRepository) store(ctx context.Context, userID uint, value string) {
	key := tokenKey(userID)
	err := c.rdb.Set(ctx, key, value, c.ttl).Err()
	if err == nil {
		return
	}
	logging.Warn().Err(err).Uint("user_id", userID).Msg("token cache write failed, invalidating")
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		logging.Warn().Err(err).Uint("user_id", userID).Msg("token cache invalidation failed")
	}
}
