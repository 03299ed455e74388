package channelmanager

import (
	"testing"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func TestValidateRunway_SufficientRunwayNoGaps(t *testing.T) {
	entries := []model.ExecutionEntry{
		{BlockID: "blk-1", StartUTCMs: 0, EndUTCMs: 60_000, Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 60_000},
		}},
		{BlockID: "blk-2", StartUTCMs: 60_000, EndUTCMs: 120_000, Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 60_000},
		}},
	}
	require.NoError(t, ValidateRunway("chan-1", entries, 100_000))
}

func TestValidateRunway_InsufficientCumulativeRunway(t *testing.T) {
	entries := []model.ExecutionEntry{
		{BlockID: "blk-1", StartUTCMs: 0, EndUTCMs: 60_000, Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 60_000},
		}},
	}
	err := ValidateRunway("chan-1", entries, 100_000)
	require.Error(t, err)
	var rerr *RunwayReadinessError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, "INV-RUNWAY-001", rerr.Code)
}

func TestValidateRunway_GapWithoutRecoveryPadIsViolation(t *testing.T) {
	entries := []model.ExecutionEntry{
		{BlockID: "blk-1", StartUTCMs: 0, EndUTCMs: 60_000, Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 60_000},
		}},
		{BlockID: "blk-2", StartUTCMs: 65_000, EndUTCMs: 125_000, Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 60_000},
		}},
	}
	err := ValidateRunway("chan-1", entries, 10_000)
	require.Error(t, err)
	var rerr *RunwayReadinessError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, "INV-RUNWAY-002", rerr.Code)
}

func TestValidateRunway_GapExemptWhenPrecededByRecoveryPad(t *testing.T) {
	entries := []model.ExecutionEntry{
		{BlockID: "blk-1", StartUTCMs: 0, EndUTCMs: 60_000, Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 55_000},
			{SegmentType: model.SegmentPad, SegmentDurationMs: 5_000, RuntimeRecovery: true},
		}},
		{BlockID: "blk-2", StartUTCMs: 65_000, EndUTCMs: 125_000, Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, SegmentDurationMs: 60_000},
		}},
	}
	require.NoError(t, ValidateRunway("chan-1", entries, 10_000))
}
