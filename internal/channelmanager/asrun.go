package channelmanager

import (
	"context"
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/log"
)

// AsRunRecorder is the write surface the feed-ahead loop uses to attest
// blocks it has confirmed complete, or abandoned mid-flight when the sink
// session ends unexpectedly. Satisfied by *asrun.Store; narrowed here so
// Feeder can be unit tested against a fake or nil (as-run recording is
// best-effort and never blocks playout).
type AsRunRecorder interface {
	AppendBlock(ctx context.Context, block model.AsRunBlock, segments []model.AsRunSegment) error
}

// asRunSegments derives append-only segment attestations from the planned
// segments of a fed entry. The sink only reports block-level completion —
// BlockCompleted carries no per-segment breakdown — so actual_duration_ms
// is taken from the plan rather than observed independently.
func asRunSegments(entry model.ExecutionEntry, observedUTCMs int64) []model.AsRunSegment {
	segs := make([]model.AsRunSegment, len(entry.Segments))
	for i, seg := range entry.Segments {
		segs[i] = model.AsRunSegment{
			SegmentID:          fmt.Sprintf("%s-%d", entry.BlockID, i),
			BlockID:            entry.BlockID,
			ChannelID:          entry.ChannelID,
			SegmentType:        seg.SegmentType,
			AssetURI:           seg.AssetURI,
			AssetStartOffsetMs: seg.AssetStartOffsetMs,
			PlannedDurationMs:  seg.SegmentDurationMs,
			ActualDurationMs:   seg.SegmentDurationMs,
			BreakpointClass:    seg.BreakpointClass,
			RuntimeRecovery:    seg.RuntimeRecovery,
			ObservedUTCMs:      observedUTCMs,
		}
	}
	return segs
}

// recordAsRun appends one block's attestation. store may be nil (as-run
// logging disabled or not wired in a test); a store error is logged, never
// propagated, since a failed attestation write must not interrupt playout.
func recordAsRun(ctx context.Context, store AsRunRecorder, entry model.ExecutionEntry, startUTCMs, endUTCMs, observedUTCMs int64, incomplete bool) {
	if store == nil {
		return
	}
	block := model.AsRunBlock{
		BlockID:    entry.BlockID,
		ChannelID:  entry.ChannelID,
		StartUTCMs: startUTCMs,
		EndUTCMs:   endUTCMs,
		Incomplete: incomplete,
	}
	if err := store.AppendBlock(ctx, block, asRunSegments(entry, observedUTCMs)); err != nil {
		log.FromContext(ctx).Error().Str("block_id", entry.BlockID).Err(err).Msg("as-run append failed")
	}
}
