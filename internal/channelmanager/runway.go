package channelmanager

import (
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/metrics"
)

// RunwayReadinessError reports a violation of the runway/fence readiness
// invariants (INV-RUNWAY-001/002): the successor material queued behind the
// live boundary isn't deep enough, or isn't ready, to survive to the next
// fence without risking underrun.
type RunwayReadinessError struct {
	ChannelID  string
	Code       string // "INV-RUNWAY-001" or "INV-RUNWAY-002"
	Detail     string
}

func (e *RunwayReadinessError) Error() string {
	return fmt.Sprintf("channelmanager: runway readiness violated for channel %s (%s): %s", e.ChannelID, e.Code, e.Detail)
}

// ValidateRunway checks both runway invariants for one channel's queued
// entries against the configured preload budget. Every segment of every
// queued entry counts at its full planned duration; time already elapsed
// in the live block is not subtracted.
//
// INV-RUNWAY-001: cumulative non-recovery runway (sum of all segment
// durations ahead, excluding pad segments flagged RuntimeRecovery) must be
// >= preloadBudgetMs at all times.
//
// INV-RUNWAY-002: every fence (segment boundary) within the queued entries
// must have a successor ready — i.e. no entry/segment gap — except where
// the segment immediately before the fence is a runtime-recovery pad, which
// is explicitly exempted since its own job is to absorb schedule slip.
func ValidateRunway(channelID string, queued []model.ExecutionEntry, preloadBudgetMs int64) error {
	var cumulativeNonRecovery int64
	for ei, entry := range queued {
		for si, seg := range entry.Segments {
			if !(seg.SegmentType == model.SegmentPad && seg.RuntimeRecovery) {
				cumulativeNonRecovery += seg.SegmentDurationMs
			}
			isLastSegmentOfEntry := si == len(entry.Segments)-1
			isLastEntry := ei == len(queued)-1
			if isLastSegmentOfEntry && !isLastEntry {
				continue // successor entry is present; fence is covered below
			}
		}
		if ei < len(queued)-1 {
			next := queued[ei+1]
			if next.StartUTCMs != entry.EndUTCMs {
				lastSeg := lastNonExemptSegment(entry)
				if !lastSeg.RuntimeRecovery || lastSeg.SegmentType != model.SegmentPad {
					metrics.RunwayViolationsTotal.WithLabelValues(channelID, "INV-RUNWAY-002").Inc()
					return &RunwayReadinessError{
						ChannelID: channelID,
						Code:      "INV-RUNWAY-002",
						Detail:    fmt.Sprintf("fence between block %s and %s has no ready successor", entry.BlockID, next.BlockID),
					}
				}
			}
		}
	}

	if cumulativeNonRecovery < preloadBudgetMs {
		metrics.RunwayViolationsTotal.WithLabelValues(channelID, "INV-RUNWAY-001").Inc()
		return &RunwayReadinessError{
			ChannelID: channelID,
			Code:      "INV-RUNWAY-001",
			Detail:    fmt.Sprintf("cumulative non-recovery runway %dms is below preload budget %dms", cumulativeNonRecovery, preloadBudgetMs),
		}
	}
	return nil
}

func lastNonExemptSegment(entry model.ExecutionEntry) model.ScheduledSegment {
	if len(entry.Segments) == 0 {
		return model.ScheduledSegment{}
	}
	return entry.Segments[len(entry.Segments)-1]
}
