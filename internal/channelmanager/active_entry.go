package channelmanager

import (
	"errors"
	"math"

	"github.com/retrovue/core/internal/domain/model"
)

// ErrNoActiveEntry is returned when no execution entry covers the
// requested instant (the execution window hasn't been extended far enough,
// or the instant is behind the retained window).
var ErrNoActiveEntry = errors.New("channelmanager: no execution entry covers the requested instant")

// ActiveEntry is the join-in-progress seed computed once, atomically, when
// a viewer attaches to a channel with no live boundary machine yet
// running: which entry is "now playing", and how far into it.
type ActiveEntry struct {
	Entry        model.ExecutionEntry
	BlockOffsetMs int64 // 0 <= BlockOffsetMs < Entry.EndUTCMs-Entry.StartUTCMs
}

// windowLookup is the minimal read surface ResolveActiveEntry needs from
// the execution window store, narrowed so JIP seeding can be unit tested
// against a trivial fake instead of a full execwindow.Store.
type windowLookup interface {
	GetNextEntry(afterUTCMs int64) (model.ExecutionEntry, bool)
}

// ResolveActiveEntry implements the §4.10.2 JIP seeding algorithm: find the
// entry whose [start,end) contains nowUTCMs and compute how far into it
// playout must seed. It is grounded on the supplemented active_item_resolver
// behavior (see SPEC_FULL.md's supplemented-features note) but expressed
// against ExecutionEntry instead of a raw item list, since the window store
// is this codebase's equivalent of that resolver's input.
//
// The entry is located by walking forward from the start of the window:
// GetNextEntry(afterUTCMs) returns the first entry starting strictly after
// afterUTCMs, so stepping through entries until one starts after nowUTCMs
// leaves the last entry with start <= now as the candidate. If that
// candidate has already ended, no entry currently covers now.
func ResolveActiveEntry(w windowLookup, nowUTCMs int64) (ActiveEntry, error) {
	var candidate model.ExecutionEntry
	found := false
	after := int64(math.MinInt64)
	for {
		e, ok := w.GetNextEntry(after)
		if !ok || e.StartUTCMs > nowUTCMs {
			break
		}
		candidate, found = e, true
		after = e.StartUTCMs
	}
	if !found {
		return ActiveEntry{}, ErrNoActiveEntry
	}
	offset := nowUTCMs - candidate.StartUTCMs
	duration := candidate.EndUTCMs - candidate.StartUTCMs
	if offset < 0 || offset >= duration {
		return ActiveEntry{}, ErrNoActiveEntry
	}
	return ActiveEntry{Entry: candidate, BlockOffsetMs: offset}, nil
}

// AdjustFirstFeedOffset clamps an initial join offset to the boundary of
// the segment it lands in, so the first feed to the sink never starts
// mid-segment at an offset past that segment's own asset_start_offset plus
// duration (the "first-feed-only offset adjustment" rule). Returns the
// segment index the offset falls into and the within-segment offset to add
// to that segment's AssetStartOffsetMs.
func AdjustFirstFeedOffset(entry model.ExecutionEntry, blockOffsetMs int64) (segmentIndex int, withinSegmentOffsetMs int64) {
	var cursor int64
	for i, seg := range entry.Segments {
		end := cursor + seg.SegmentDurationMs
		if blockOffsetMs < end {
			return i, blockOffsetMs - cursor
		}
		cursor = end
	}
	// Past the last segment's nominal end (can happen with a zero-length
	// final segment): seed at the start of the last segment.
	if len(entry.Segments) == 0 {
		return 0, 0
	}
	return len(entry.Segments) - 1, 0
}

// SeedFirstFeedEntry applies the §4.10.2 step 3 truncation to the segment
// AdjustFirstFeedOffset lands on, so the sink never replays material
// already behind the join point: segment_duration_ms -= offset,
// asset_start_offset_ms += offset. It returns a copy — entry and its
// Segments slice are left untouched, since the window store's retained
// copy must still reflect the full, untruncated entry for every later
// reader (the feed-ahead loop's own cursor bookkeeping included).
func SeedFirstFeedEntry(entry model.ExecutionEntry, segIdx int, withinSegmentOffsetMs int64) model.ExecutionEntry {
	if withinSegmentOffsetMs <= 0 || segIdx < 0 || segIdx >= len(entry.Segments) {
		return entry
	}
	segments := make([]model.ScheduledSegment, len(entry.Segments))
	copy(segments, entry.Segments)
	seg := segments[segIdx]
	seg.SegmentDurationMs -= withinSegmentOffsetMs
	seg.AssetStartOffsetMs += withinSegmentOffsetMs
	segments[segIdx] = seg

	seeded := entry
	seeded.Segments = segments
	return seeded
}
