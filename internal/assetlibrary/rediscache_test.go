package assetlibrary

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCachedLibrary_ResolveWarmsCache(t *testing.T) {
	ctx := context.Background()
	origin := NewMemoryLibrary()
	ref := model.ProgramRef{Kind: model.ProgramRefEpisode, ID: "ep-1"}
	origin.PutAsset(ref, model.ResolvedAsset{AssetURI: "file:///ep1.mp4", DurationMs: 1_500_000}, "Episode One", "synopsis")

	cached := NewCachedLibrary(origin, newTestRedis(t), time.Minute)

	asset, err := cached.Resolve(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, int64(1_500_000), asset.DurationMs)

	// Second DurationMs lookup should be served from cache, not origin;
	// prove it by corrupting the origin's backing record.
	origin.mu.Lock()
	rec := origin.assets[asset.AssetURI]
	rec.asset.DurationMs = -1
	origin.assets[asset.AssetURI] = rec
	origin.mu.Unlock()

	d, err := cached.DurationMs(ctx, asset.AssetURI)
	require.NoError(t, err)
	require.Equal(t, int64(1_500_000), d)
}

func TestCachedLibrary_MissFallsThroughToOrigin(t *testing.T) {
	ctx := context.Background()
	origin := NewMemoryLibrary()
	ref := model.ProgramRef{Kind: model.ProgramRefMovie, ID: "mv-1"}
	origin.PutAsset(ref, model.ResolvedAsset{AssetURI: "file:///mv1.mp4", DurationMs: 6_000_000}, "Movie", "")

	cached := NewCachedLibrary(origin, newTestRedis(t), time.Minute)

	d, err := cached.DurationMs(ctx, "file:///mv1.mp4")
	require.NoError(t, err)
	require.Equal(t, int64(6_000_000), d)
}
