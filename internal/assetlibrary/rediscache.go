package assetlibrary

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/log"
)

// CachedLibrary wraps a Library with a Redis cache. Resolve always calls the
// origin and writes the resolved asset to the cache; DurationMs and Markers
// are served from that cache when present and fall through to the origin
// (without populating the cache) on a miss. Title, Synopsis and FillerAssets
// always consult the origin. The spec requires the library be I/O-free on the pacing
// path (§4.2); this cache exists so the *planning* path (which does allow
// I/O, §5) stays fast and so the origin store is never hammered by a
// horizon-extension burst.
type CachedLibrary struct {
	origin Library
	rdb    *redis.Client
	ttl    time.Duration
}

// NewCachedLibrary wraps origin with a Redis-backed cache using the given TTL.
func NewCachedLibrary(origin Library, rdb *redis.Client, ttl time.Duration) *CachedLibrary {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedLibrary{origin: origin, rdb: rdb, ttl: ttl}
}

type cachedAsset struct {
	Asset    model.ResolvedAsset
	Title    string
	Synopsis string
}

func assetCacheKey(uri string) string { return "retrovue:asset:" + uri }

func (c *CachedLibrary) lookupAsset(ctx context.Context, uri string) (cachedAsset, bool) {
	raw, err := c.rdb.Get(ctx, assetCacheKey(uri)).Bytes()
	if err != nil {
		return cachedAsset{}, false
	}
	var ca cachedAsset
	if json.Unmarshal(raw, &ca) != nil {
		return cachedAsset{}, false
	}
	return ca, true
}

func (c *CachedLibrary) storeAsset(ctx context.Context, uri string, ca cachedAsset) {
	raw, err := json.Marshal(ca)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, assetCacheKey(uri), raw, c.ttl).Err(); err != nil {
		log.FromContext(ctx).Debug().Err(err).Str("asset_uri", uri).Msg("asset cache write failed, continuing uncached")
	}
}

func (c *CachedLibrary) DurationMs(ctx context.Context, assetURI string) (int64, error) {
	if ca, ok := c.lookupAsset(ctx, assetURI); ok {
		return ca.Asset.DurationMs, nil
	}
	d, err := c.origin.DurationMs(ctx, assetURI)
	if err != nil {
		return 0, err
	}
	return d, nil
}

func (c *CachedLibrary) Markers(ctx context.Context, assetURI string) ([]model.Marker, error) {
	if ca, ok := c.lookupAsset(ctx, assetURI); ok {
		return ca.Asset.Markers, nil
	}
	return c.origin.Markers(ctx, assetURI)
}

func (c *CachedLibrary) FillerAssets(ctx context.Context, maxDurationMs int64, maxCount int) ([]FillerAsset, error) {
	// Interstitial inventory changes too often for a TTL cache to be safe;
	// always consult the origin, same as xg2g's traffic play-log reads.
	return c.origin.FillerAssets(ctx, maxDurationMs, maxCount)
}

func (c *CachedLibrary) Title(ctx context.Context, ref model.ProgramRef) (string, error) {
	return c.origin.Title(ctx, ref)
}

func (c *CachedLibrary) Synopsis(ctx context.Context, ref model.ProgramRef) (string, error) {
	return c.origin.Synopsis(ctx, ref)
}

func (c *CachedLibrary) Resolve(ctx context.Context, ref model.ProgramRef) (model.ResolvedAsset, error) {
	asset, err := c.origin.Resolve(ctx, ref)
	if err != nil {
		return model.ResolvedAsset{}, err
	}
	title, _ := c.origin.Title(ctx, ref)
	synopsis, _ := c.origin.Synopsis(ctx, ref)
	c.storeAsset(ctx, asset.AssetURI, cachedAsset{Asset: asset, Title: title, Synopsis: synopsis})
	return asset, nil
}

var _ Library = (*CachedLibrary)(nil)
