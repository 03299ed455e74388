package channelmanager

import (
	"testing"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/execwindow"
	"github.com/stretchr/testify/require"
)

func seedWindow(entries ...model.ExecutionEntry) *execwindow.Store {
	s := execwindow.NewStore(0)
	s.AddEntries(entries)
	return s
}

func TestResolveActiveEntry_MidBlockJoin(t *testing.T) {
	w := seedWindow(
		model.ExecutionEntry{BlockID: "blk-1", ChannelID: "chan-1", StartUTCMs: 0, EndUTCMs: 60_000},
		model.ExecutionEntry{BlockID: "blk-2", ChannelID: "chan-1", StartUTCMs: 60_000, EndUTCMs: 120_000},
	)

	active, err := ResolveActiveEntry(w, 75_000)
	require.NoError(t, err)
	require.Equal(t, "blk-2", active.Entry.BlockID)
	require.Equal(t, int64(15_000), active.BlockOffsetMs)
}

func TestResolveActiveEntry_ExactStartHasZeroOffset(t *testing.T) {
	w := seedWindow(model.ExecutionEntry{BlockID: "blk-1", ChannelID: "chan-1", StartUTCMs: 0, EndUTCMs: 60_000})

	active, err := ResolveActiveEntry(w, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), active.BlockOffsetMs)
}

func TestResolveActiveEntry_NoCoverageIsError(t *testing.T) {
	w := seedWindow(model.ExecutionEntry{BlockID: "blk-1", ChannelID: "chan-1", StartUTCMs: 0, EndUTCMs: 60_000})

	_, err := ResolveActiveEntry(w, 120_000)
	require.ErrorIs(t, err, ErrNoActiveEntry)
}

func TestResolveActiveEntry_EmptyWindowIsError(t *testing.T) {
	w := execwindow.NewStore(0)
	_, err := ResolveActiveEntry(w, 0)
	require.ErrorIs(t, err, ErrNoActiveEntry)
}

func TestAdjustFirstFeedOffset_LandsInSecondSegment(t *testing.T) {
	entry := model.ExecutionEntry{
		Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 30_000},
			{SegmentType: model.SegmentAd, SegmentDurationMs: 10_000},
			{SegmentType: model.SegmentContent, SegmentDurationMs: 20_000},
		},
	}

	idx, within := AdjustFirstFeedOffset(entry, 35_000)
	require.Equal(t, 1, idx)
	require.Equal(t, int64(5_000), within)
}

func TestAdjustFirstFeedOffset_ZeroOffsetLandsInFirstSegment(t *testing.T) {
	entry := model.ExecutionEntry{
		Segments: []model.ScheduledSegment{{SegmentType: model.SegmentContent, SegmentDurationMs: 30_000}},
	}
	idx, within := AdjustFirstFeedOffset(entry, 0)
	require.Equal(t, 0, idx)
	require.Equal(t, int64(0), within)
}

func TestSeedFirstFeedEntry_TruncatesLandingSegment(t *testing.T) {
	entry := model.ExecutionEntry{
		BlockID: "blk-1",
		Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, AssetURI: "a", AssetStartOffsetMs: 0, SegmentDurationMs: 30_000},
			{SegmentType: model.SegmentAd, AssetURI: "b", AssetStartOffsetMs: 0, SegmentDurationMs: 10_000},
			{SegmentType: model.SegmentContent, AssetURI: "c", AssetStartOffsetMs: 0, SegmentDurationMs: 20_000},
		},
	}

	idx, within := AdjustFirstFeedOffset(entry, 35_000)
	seeded := SeedFirstFeedEntry(entry, idx, within)

	require.Equal(t, int64(5_000), seeded.Segments[1].AssetStartOffsetMs)
	require.Equal(t, int64(5_000), seeded.Segments[1].SegmentDurationMs)
	// Segments untouched elsewhere, and the source entry's own slice is
	// never mutated in place.
	require.Equal(t, int64(30_000), seeded.Segments[0].SegmentDurationMs)
	require.Equal(t, int64(0), entry.Segments[1].AssetStartOffsetMs)
	require.Equal(t, int64(10_000), entry.Segments[1].SegmentDurationMs)
}

func TestSeedFirstFeedEntry_ZeroOffsetIsNoop(t *testing.T) {
	entry := model.ExecutionEntry{
		Segments: []model.ScheduledSegment{{SegmentType: model.SegmentContent, SegmentDurationMs: 30_000}},
	}
	seeded := SeedFirstFeedEntry(entry, 0, 0)
	require.Equal(t, int64(30_000), seeded.Segments[0].SegmentDurationMs)
}
