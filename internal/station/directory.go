package station

import (
	"context"
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"github.com/James-Fry-2/train-data-api/internal/models"
)

// Directory looks up railway stations
type Directory interface {
	Lookup(ctx context.Context, code string) (*models.Station, error)
	ListWithCoordinates(ctx context.Context, limit int) ([]models.Station, error)
	Search(ctx context.Context, query string, limit int) ([]models.Station, error)
}

// CachedDirectory memoizes lookups and coordinate listings of another Directory
type CachedDirectory struct {
	next    Directory
	byCode  gcache.Cache
	listing gcache.Cache
}

// NewCachedDirectory wraps next with an LRU cache expiring after ttl
func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:    next,
		byCode:  gcache.New(size).LRU().Expiration(ttl).Build(),
		listing: gcache.New(8).LRU().Expiration(ttl).Build(),
	}
}

// Lookup implements Directory
func (d *CachedDirectory) Lookup(ctx context.Context, code string) (*models.Station, error) {
	if v, err := d.byCode.Get(code); err == nil {
		return v.(*models.Station), nil
	}

	st, err := d.next.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	_ = d.byCode.Set(code, st)
	return st, nil
}

// ListWithCoordinates implements Directory
func (d *CachedDirectory) ListWithCoordinates(ctx context.Context, limit int) ([]models.Station, error) {
	key := fmt.Sprintf("coords:%d", limit)
	if v, err := d.listing.Get(key); err == nil {
		return v.([]models.Station), nil
	}

	stations, err := d.next.ListWithCoordinates(ctx, limit)
	if err != nil {
		return nil, err
	}
	_ = d.listing.Set(key, stations)
	return stations, nil
}

// Search implements Directory. Free-text results are not cached.
func (d *CachedDirectory) Search(ctx context.Context, query string, limit int) ([]models.Station, error) {
	return d.next.Search(ctx, query, limit)
}
