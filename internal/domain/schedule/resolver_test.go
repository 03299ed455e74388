package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func newFixtureLibrary() *assetlibrary.MemoryLibrary {
	lib := assetlibrary.NewMemoryLibrary()
	lib.PutAsset(model.ProgramRef{Kind: model.ProgramRefEpisode, ID: "ep-1"},
		model.ResolvedAsset{AssetURI: "file:///ep1.mp4", DurationMs: 30 * 60_000}, "Episode One", "")
	lib.PutAsset(model.ProgramRef{Kind: model.ProgramRefEpisode, ID: "ep-2"},
		model.ResolvedAsset{AssetURI: "file:///ep2.mp4", DurationMs: 30 * 60_000}, "Episode Two", "")
	return lib
}

func TestResolveDay_GridSlotsAndRotation(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	lib := newFixtureLibrary()
	resolver := NewResolver(Config{ChannelID: "chan-1", Location: loc, GridBlockMinutes: 30}, lib, NewSequenceStore())

	plan := model.SchedulePlanArtifact{
		PlanID:    "plan-1",
		ChannelID: "chan-1",
		Zones: []model.ZoneDirective{
			{
				ZoneID:           "prime",
				ChannelID:        "chan-1",
				LocalStartMinute: 19 * 60,
				LocalEndMinute:   20 * 60,
				FamilyID:         "sitcom",
				ProgramRefs: []model.ProgramRef{
					{Kind: model.ProgramRefEpisode, ID: "ep-1"},
					{Kind: model.ProgramRefEpisode, ID: "ep-2"},
				},
			},
		},
	}

	day, err := resolver.ResolveDay(context.Background(), plan, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, day.Slots, 2)
	require.Equal(t, "file:///ep1.mp4", day.Slots[0].ResolvedAsset.AssetURI)
	require.Equal(t, "file:///ep2.mp4", day.Slots[1].ResolvedAsset.AssetURI)
	require.True(t, day.Slots[0].UTCStartMs < day.Slots[1].UTCStartMs)
	require.Equal(t, day.Slots[0].UTCStartMs+30*60_000, day.Slots[1].UTCStartMs)

	// A second day continues the rotation rather than restarting it.
	day2, err := resolver.ResolveDay(context.Background(), plan, "2026-03-11")
	require.NoError(t, err)
	require.Equal(t, "file:///ep1.mp4", day2.Slots[0].ResolvedAsset.AssetURI)
	require.Equal(t, "file:///ep2.mp4", day2.Slots[1].ResolvedAsset.AssetURI)
}

func TestResolveDay_DaysOfWeekFilter(t *testing.T) {
	loc := time.UTC
	lib := newFixtureLibrary()
	resolver := NewResolver(Config{ChannelID: "chan-1", Location: loc, GridBlockMinutes: 30}, lib, NewSequenceStore())

	// 2026-03-10 is a Tuesday (weekday 2); restrict the zone to Mondays only.
	plan := model.SchedulePlanArtifact{
		ChannelID: "chan-1",
		Zones: []model.ZoneDirective{
			{
				ZoneID:           "monday-only",
				LocalStartMinute: 0,
				LocalEndMinute:   30,
				DaysOfWeek:       []int{1},
				FamilyID:         "sitcom",
				ProgramRefs:      []model.ProgramRef{{Kind: model.ProgramRefEpisode, ID: "ep-1"}},
			},
		},
	}

	day, err := resolver.ResolveDay(context.Background(), plan, "2026-03-10")
	require.NoError(t, err)
	require.Empty(t, day.Slots)
}

func TestResolveDay_EmptyProgramFamily(t *testing.T) {
	loc := time.UTC
	lib := newFixtureLibrary()
	resolver := NewResolver(Config{ChannelID: "chan-1", Location: loc, GridBlockMinutes: 30}, lib, NewSequenceStore())

	plan := model.SchedulePlanArtifact{
		ChannelID: "chan-1",
		Zones: []model.ZoneDirective{
			{ZoneID: "empty", LocalStartMinute: 0, LocalEndMinute: 30, FamilyID: "nothing"},
		},
	}

	_, err := resolver.ResolveDay(context.Background(), plan, "2026-03-10")
	require.Error(t, err)
	var target *ErrEmptyProgramFamily
	require.True(t, errors.As(err, &target))
	require.ErrorIs(t, err, ErrEmptyProgramFamilyKind)
}

func TestResolveDay_DSTReject(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	lib := newFixtureLibrary()
	resolver := NewResolver(Config{ChannelID: "chan-1", Location: loc, GridBlockMinutes: 30}, lib, NewSequenceStore())

	plan := model.SchedulePlanArtifact{
		ChannelID: "chan-1",
		Zones: []model.ZoneDirective{
			{
				ZoneID:           "overnight",
				LocalStartMinute: 0,
				LocalEndMinute:   4 * 60,
				FamilyID:         "sitcom",
				DSTPolicy:        model.DSTReject,
				ProgramRefs:      []model.ProgramRef{{Kind: model.ProgramRefEpisode, ID: "ep-1"}},
			},
		},
	}

	// 2026-03-08 is the US spring-forward transition in America/Chicago.
	_, err = resolver.ResolveDay(context.Background(), plan, "2026-03-08")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDSTRejectKind)
}

func TestResolveDay_DSTShrinkOneBlock(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	lib := newFixtureLibrary()
	resolver := NewResolver(Config{ChannelID: "chan-1", Location: loc, GridBlockMinutes: 30}, lib, NewSequenceStore())

	plan := model.SchedulePlanArtifact{
		ChannelID: "chan-1",
		Zones: []model.ZoneDirective{
			{
				ZoneID:           "overnight",
				LocalStartMinute: 0,
				LocalEndMinute:   4 * 60, // 8 blocks on a normal day
				FamilyID:         "sitcom",
				DSTPolicy:        model.DSTShrinkOneBlock,
				ProgramRefs:      []model.ProgramRef{{Kind: model.ProgramRefEpisode, ID: "ep-1"}},
			},
		},
	}

	day, err := resolver.ResolveDay(context.Background(), plan, "2026-03-08")
	require.NoError(t, err)
	require.Len(t, day.Slots, 7)
}
