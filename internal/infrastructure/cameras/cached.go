package cameras

import (
	"context"
	"fmt"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/cache"
)

// CachedDirectory memoizes lookups for a TTL so a burst of playlist and
// segment requests does not hammer the camera service.
type CachedDirectory struct {
	inner ports.CameraDirectory
	cache *cache.CacheWithFallback
	ttl   time.Duration
}

func NewCachedDirectory(inner ports.CameraDirectory, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		inner: inner,
		cache: cache.NewCacheWithFallback(ttl),
		ttl:   ttl,
	}
}

func (d *CachedDirectory) Lookup(ctx context.Context, cameraID domain.CameraID, companyID domain.CompanyID) (*domain.Camera, error) {
	key := fmt.Sprintf("camera:%s:%s", companyID, cameraID)

	value, err := d.cache.GetOrSet(ctx, key, func(ctx context.Context) (interface{}, error) {
		return d.inner.Lookup(ctx, cameraID, companyID)
	}, d.ttl)
	if err != nil {
		return nil, err
	}

	cam := *value.(*domain.Camera)
	return &cam, nil
}

// Invalidate drops one camera's cached entry, forcing the next lookup
// through.
func (d *CachedDirectory) Invalidate(cameraID domain.CameraID, companyID domain.CompanyID) {
	d.cache.Invalidate(fmt.Sprintf("camera:%s:%s", companyID, cameraID))
}

func (d *CachedDirectory) Stop() {
	d.cache.Stop()
}
