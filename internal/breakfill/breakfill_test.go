package breakfill

import (
	"context"
	"testing"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func sumDurations(segs []model.ScheduledSegment) int64 {
	var total int64
	for _, s := range segs {
		total += s.SegmentDurationMs
	}
	return total
}

func TestFillBreak_GreedyPackWithTrailingPadRemainder(t *testing.T) {
	lib := assetlibrary.NewMemoryLibrary()
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "ad1", DurationMs: 30_000, AssetType: model.SegmentAd})
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "ad2", DurationMs: 30_000, AssetType: model.SegmentAd})
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "ad3", DurationMs: 45_000, AssetType: model.SegmentAd})

	filler := NewFiller(lib)
	segs, err := filler.fillBreak(context.Background(), model.BreakSpec{DurationMs: 91_000, BreakIndex: 0})
	require.NoError(t, err)
	require.Equal(t, int64(91_000), sumDurations(segs))

	var spots, pads int
	for _, s := range segs {
		if s.SegmentType == model.SegmentPad {
			pads++
		} else {
			spots++
		}
	}
	require.Equal(t, 2, spots) // ad1(30s)+ad2(30s) pack; ad3(45s) doesn't fit in remaining 31s
	require.Equal(t, 2, pads)
}

func TestFillBreak_FallbackWhenNoInterstitialsAvailable(t *testing.T) {
	lib := assetlibrary.NewMemoryLibrary()
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "long-filler", DurationMs: 120_000, AssetType: model.SegmentFiller})

	filler := NewFiller(lib)
	segs, err := filler.fillBreak(context.Background(), model.BreakSpec{DurationMs: 60_000, BreakIndex: 0})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Equal(t, model.SegmentFiller, segs[0].SegmentType)
	require.Equal(t, int64(60_000), segs[0].SegmentDurationMs)
}

func TestFillBreak_FallbackTooShortIsFatal(t *testing.T) {
	lib := assetlibrary.NewMemoryLibrary()
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "short-filler", DurationMs: 10_000, AssetType: model.SegmentFiller})

	filler := NewFiller(lib)
	_, err := filler.fillBreak(context.Background(), model.BreakSpec{DurationMs: 60_000, BreakIndex: 0})
	require.Error(t, err)
	var target *ErrFallbackFillerTooShort
	require.ErrorAs(t, err, &target)
}

func TestFillBreak_ExactPackLeavesNoPads(t *testing.T) {
	lib := assetlibrary.NewMemoryLibrary()
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "ad1", DurationMs: 30_000, AssetType: model.SegmentAd})
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "ad2", DurationMs: 30_000, AssetType: model.SegmentAd})

	filler := NewFiller(lib)
	segs, err := filler.fillBreak(context.Background(), model.BreakSpec{DurationMs: 60_000, BreakIndex: 0})
	require.NoError(t, err)
	require.Equal(t, int64(60_000), sumDurations(segs))
	for _, s := range segs {
		require.NotEqual(t, model.SegmentPad, s.SegmentType)
	}
}

func TestFillBlock_InterleavesContentAndBreaks(t *testing.T) {
	lib := assetlibrary.NewMemoryLibrary()
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "ad1", DurationMs: 30_000, AssetType: model.SegmentAd})

	block := model.SegmentedBlock{
		ChannelID:  "chan-1",
		UTCStartMs: 0,
		UTCEndMs:   120_000,
		Content: []model.ContentSegmentSpec{
			{AssetURI: "ep.mp4", DurationMs: 45_000},
			{AssetURI: "ep.mp4", AssetStartOffsetMs: 45_000, DurationMs: 45_000},
		},
		Breaks: []model.BreakSpec{{DurationMs: 30_000, BreakIndex: 0}},
	}

	filler := NewFiller(lib)
	filled, err := filler.FillBlock(context.Background(), block)
	require.NoError(t, err)
	require.Len(t, filled.Segments, 3)
	require.Equal(t, model.SegmentContent, filled.Segments[0].SegmentType)
	require.Equal(t, model.SegmentAd, filled.Segments[1].SegmentType)
	require.Equal(t, model.SegmentContent, filled.Segments[2].SegmentType)
}
