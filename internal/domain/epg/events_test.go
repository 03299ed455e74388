package epg

import (
	"context"
	"testing"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func TestDeriveEvents_OrderedProjection(t *testing.T) {
	lib := assetlibrary.NewMemoryLibrary()
	ref := model.ProgramRef{Kind: model.ProgramRefEpisode, ID: "ep-1"}
	lib.PutAsset(ref, model.ResolvedAsset{AssetURI: "file:///ep1.mp4", DurationMs: 30 * 60_000}, "Episode One", "a synopsis")

	day := model.ScheduleDayArtifact{
		ChannelID:     "chan-1",
		BroadcastDate: "2026-03-10",
		Slots: []model.ResolvedSlot{
			{UTCStartMs: 0, UTCEndMs: 30 * 60_000, ProgramRef: ref, ResolvedAsset: model.ResolvedAsset{AssetURI: "file:///ep1.mp4"}},
			{UTCStartMs: 30 * 60_000, UTCEndMs: 60 * 60_000, ProgramRef: ref, ResolvedAsset: model.ResolvedAsset{AssetURI: "file:///ep1.mp4"}},
		},
	}

	events, err := DeriveEvents(context.Background(), lib, day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Episode One", events[0].Title)
	require.Equal(t, "a synopsis", events[0].Synopsis)
	require.Equal(t, events[0].UTCEndMs, events[1].UTCStartMs)
}

func TestDeriveEvents_RejectsNonContiguousSlots(t *testing.T) {
	lib := assetlibrary.NewMemoryLibrary()
	ref := model.ProgramRef{Kind: model.ProgramRefEpisode, ID: "ep-1"}
	lib.PutAsset(ref, model.ResolvedAsset{AssetURI: "file:///ep1.mp4"}, "Episode One", "")

	day := model.ScheduleDayArtifact{
		ChannelID: "chan-1",
		Slots: []model.ResolvedSlot{
			{UTCStartMs: 0, UTCEndMs: 30 * 60_000, ProgramRef: ref},
			{UTCStartMs: 40 * 60_000, UTCEndMs: 70 * 60_000, ProgramRef: ref}, // gap
		},
	}

	_, err := DeriveEvents(context.Background(), lib, day)
	require.Error(t, err)
	var target *ErrNonContiguousSlots
	require.ErrorAs(t, err, &target)
}
