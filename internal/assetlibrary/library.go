// Package assetlibrary defines the narrow, read-only capability set the
// planner needs from asset metadata (§4.2). It performs no I/O on the
// pacing path: the planner only ever calls it during planning passes
// (schedule resolution, segmentation, break filling), never from the
// ChannelManager runtime loop.
package assetlibrary

import (
	"context"
	"errors"

	"github.com/retrovue/core/internal/domain/model"
)

// ErrAssetNotFound is returned when an asset_uri has no known metadata.
var ErrAssetNotFound = errors.New("asset not found")

// FillerAsset is one candidate for interstitial packing (§4.6).
type FillerAsset struct {
	AssetURI   string
	DurationMs int64
	AssetType  model.SegmentType // promo | ad | commercial | filler
}

// Library is the read-only capability set consumed by the planner.
type Library interface {
	// DurationMs returns the measured duration of an asset.
	DurationMs(ctx context.Context, assetURI string) (int64, error)

	// Markers returns the ordered first-class markers for an asset.
	Markers(ctx context.Context, assetURI string) ([]model.Marker, error)

	// FillerAssets returns candidates for interstitial packing, each no
	// longer than maxDurationMs, up to maxCount candidates.
	FillerAssets(ctx context.Context, maxDurationMs int64, maxCount int) ([]FillerAsset, error)

	// Title and Synopsis feed EPG derivation (§4.4); the concrete
	// ResolvedAsset does not itself carry viewer-facing text.
	Title(ctx context.Context, ref model.ProgramRef) (string, error)
	Synopsis(ctx context.Context, ref model.ProgramRef) (string, error)

	// Resolve binds a ProgramRef to its ResolvedAsset.
	Resolve(ctx context.Context, ref model.ProgramRef) (model.ResolvedAsset, error)
}
