package horizon

import (
	"context"
	"testing"
	"time"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/clock"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/domain/schedule"
	"github.com/retrovue/core/internal/execwindow"
	"github.com/retrovue/core/internal/segmentation"
	"github.com/stretchr/testify/require"
)

func fixtureLibrary() *assetlibrary.MemoryLibrary {
	lib := assetlibrary.NewMemoryLibrary()
	lib.PutAsset(model.ProgramRef{Kind: model.ProgramRefEpisode, ID: "ep-1"},
		model.ResolvedAsset{AssetURI: "file:///ep1.mp4", DurationMs: 30 * 60_000}, "Episode One", "")
	lib.PutFiller(assetlibrary.FillerAsset{AssetURI: "filler.mp4", DurationMs: 5 * 60_000, AssetType: model.SegmentFiller})
	return lib
}

func fixturePlan() model.SchedulePlanArtifact {
	return model.SchedulePlanArtifact{
		PlanID:    "plan-1",
		ChannelID: "chan-1",
		Zones: []model.ZoneDirective{
			{
				ZoneID:           "all-day",
				ChannelID:        "chan-1",
				LocalStartMinute: 0,
				LocalEndMinute:   24 * 60,
				FamilyID:         "sitcom",
				ProgramRefs:      []model.ProgramRef{{Kind: model.ProgramRefEpisode, ID: "ep-1"}},
			},
		},
	}
}

func TestExtend_ReachesTargetDepthAndIsIdempotent(t *testing.T) {
	lib := fixtureLibrary()
	fake := clock.NewFake(0)
	mgr := NewManager(HorizonConfig{Mode: ModeAuthoritative, DefaultTargetDepthMs: 90 * 60_000}, fake, lib, nil)

	cfg := ChannelConfig{
		ChannelID:        "chan-1",
		GridBlockMinutes: 30,
		AnchorUTCMs:      0,
		ResolverCfg:      schedule.Config{ChannelID: "chan-1", Location: time.UTC, GridBlockMinutes: 30},
		SegmenterCfg:     segmentation.Config{ChannelType: model.ChannelTypeMovie},
	}
	store := execwindow.NewStore(0)
	mgr.RegisterChannel(cfg, store)

	require.NoError(t, mgr.Extend(context.Background(), "chan-1", fixturePlan()))
	require.True(t, store.Len() > 0)

	first := store.Len()
	require.NoError(t, mgr.Extend(context.Background(), "chan-1", fixturePlan()))
	require.Equal(t, first, store.Len()) // duplicate block_ids never double-count
}

func TestGetNextEntry_MissReturnsNoScheduleDataError(t *testing.T) {
	lib := fixtureLibrary()
	fake := clock.NewFake(0)
	mgr := NewManager(HorizonConfig{Mode: ModeAuthoritative, DefaultTargetDepthMs: 60_000}, fake, lib, nil)

	_, err := mgr.GetNextEntry("unregistered", 0)
	require.Error(t, err)
	var target *NoScheduleDataError
	require.ErrorAs(t, err, &target)
}

func TestExtendAll_LegacyModeIsNoOp(t *testing.T) {
	lib := fixtureLibrary()
	fake := clock.NewFake(0)
	mgr := NewManager(HorizonConfig{Mode: ModeLegacy}, fake, lib, nil)

	cfg := ChannelConfig{
		ChannelID:        "chan-1",
		GridBlockMinutes: 30,
		ResolverCfg:      schedule.Config{ChannelID: "chan-1", Location: time.UTC, GridBlockMinutes: 30},
		SegmenterCfg:     segmentation.Config{ChannelType: model.ChannelTypeMovie},
	}
	store := execwindow.NewStore(0)
	mgr.RegisterChannel(cfg, store)

	require.NoError(t, mgr.ExtendAll(context.Background(), map[string]model.SchedulePlanArtifact{"chan-1": fixturePlan()}))
	require.Equal(t, 0, store.Len())
}

func TestHorizonConfig_PerChannelTargetDepthOverride(t *testing.T) {
	cfg := HorizonConfig{
		DefaultTargetDepthMs:    10,
		PerChannelTargetDepthMs: map[string]int64{"chan-1": 999},
	}
	require.Equal(t, int64(999), cfg.targetDepthFor("chan-1", 0))
	require.Equal(t, int64(10), cfg.targetDepthFor("chan-2", 0))
}
