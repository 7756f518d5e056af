package geo

import (
	"context"

	"github.com/anonto42/pinpoint/backend/internal/apperr"
	"github.com/anonto42/pinpoint/backend/internal/models"
)

// ZoneStore lists the watch zones that are currently active.
type ZoneStore interface {
	ListActive(ctx context.Context) ([]models.WatchZone, error)
}

// Index serves zone snapshots straight from the zone store. There is no cache: a
// snapshot may or may not include zones created concurrently with the read.
type Index struct {
	store ZoneStore
}

// NewIndex creates an Index over store
func NewIndex(store ZoneStore) *Index {
	return &Index{store: store}
}

// ActiveZones returns the zones active at call time, in no particular order.
func (i *Index) ActiveZones(ctx context.Context) ([]models.WatchZone, error) {
	zones, err := i.store.ListActive(ctx)
	if err != nil {
		return nil, apperr.Storage("list active zones", err)
	}
	return zones, nil
}
