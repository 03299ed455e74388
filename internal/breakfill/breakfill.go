// Package breakfill implements break filling / traffic (§4.6): materializing
// each BreakSpec into an ordered run of ScheduledSegments whose durations sum
// exactly to the break's duration.
package breakfill

import (
	"context"
	"fmt"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/domain/model"
)

// ErrFallbackFillerTooShort is raised when no interstitial packs and the
// single fallback filler is itself shorter than the break it must cover.
type ErrFallbackFillerTooShort struct {
	BreakDurationMs  int64
	FillerDurationMs int64
}

func (e *ErrFallbackFillerTooShort) Error() string {
	return fmt.Sprintf("fallback filler duration %dms shorter than break %dms", e.FillerDurationMs, e.BreakDurationMs)
}

// Filler materializes breaks using an asset library's interstitial inventory.
type Filler struct {
	lib assetlibrary.Library
}

// NewFiller builds a Filler over the given asset library.
func NewFiller(lib assetlibrary.Library) *Filler {
	return &Filler{lib: lib}
}

// FillBlock materializes every break in a SegmentedBlock, interleaving its
// content segments with the filled break segments in order, and returns the
// execution-ready FilledBlock.
func (f *Filler) FillBlock(ctx context.Context, block model.SegmentedBlock) (model.FilledBlock, error) {
	out := model.FilledBlock{
		ChannelID:  block.ChannelID,
		UTCStartMs: block.UTCStartMs,
		UTCEndMs:   block.UTCEndMs,
	}

	for i, content := range block.Content {
		out.Segments = append(out.Segments, model.ScheduledSegment{
			SegmentType:        model.SegmentContent,
			AssetURI:           content.AssetURI,
			AssetStartOffsetMs: content.AssetStartOffsetMs,
			SegmentDurationMs:  content.DurationMs,
			Transition:         content.Transition,
			BreakpointClass:    content.BreakpointClass,
			BreakIndex:         -1,
		})
		if i >= len(block.Breaks) {
			continue
		}
		filled, err := f.fillBreak(ctx, block.Breaks[i])
		if err != nil {
			return model.FilledBlock{}, err
		}
		out.Segments = append(out.Segments, filled...)
	}

	return out, nil
}

// fillBreak runs the §4.6 algorithm for a single BreakSpec.
func (f *Filler) fillBreak(ctx context.Context, spec model.BreakSpec) ([]model.ScheduledSegment, error) {
	if spec.DurationMs <= 0 {
		return nil, nil
	}

	candidates, err := f.lib.FillerAssets(ctx, spec.DurationMs, 0)
	if err != nil {
		return nil, fmt.Errorf("breakfill: list interstitials for break %d: %w", spec.BreakIndex, err)
	}

	// Filler-type assets are not interstitials: they only ever cover a break
	// through the single-asset fallback below.
	interstitials := candidates[:0:0]
	for _, c := range candidates {
		if c.AssetType != model.SegmentFiller {
			interstitials = append(interstitials, c)
		}
	}

	spots, remaining := packGreedy(interstitials, spec.DurationMs)
	if len(spots) == 0 {
		return f.fallbackFill(ctx, spec)
	}

	gapMs := remaining
	pads := distributePads(gapMs, len(spots))

	segments := make([]model.ScheduledSegment, 0, len(spots)+len(pads))
	for i, spot := range spots {
		segments = append(segments, model.ScheduledSegment{
			SegmentType:       segmentTypeOf(spot),
			AssetURI:          spot.AssetURI,
			SegmentDurationMs: spot.DurationMs,
			BreakIndex:        spec.BreakIndex,
		})
		if padMs := pads[i]; padMs > 0 {
			segments = append(segments, model.ScheduledSegment{
				SegmentType:       model.SegmentPad,
				SegmentDurationMs: padMs,
				BreakIndex:        spec.BreakIndex,
				RuntimeRecovery:   true,
			})
		}
	}
	return segments, nil
}

// packGreedy takes candidates in order, keeping any that still fit within
// the remaining budget, and returns the packed run plus the unused budget.
func packGreedy(candidates []assetlibrary.FillerAsset, budgetMs int64) ([]assetlibrary.FillerAsset, int64) {
	remaining := budgetMs
	var packed []assetlibrary.FillerAsset
	for _, c := range candidates {
		if c.DurationMs <= remaining {
			packed = append(packed, c)
			remaining -= c.DurationMs
		}
	}
	return packed, remaining
}

// distributePads splits gapMs into n pad durations as floor(gap/n) each,
// assigning the gap mod n remainder one millisecond at a time to the
// trailing pads, so the first pad is never larger than the others
// (INV-BREAK-PAD-EXACT-001).
func distributePads(gapMs int64, n int) []int64 {
	if n == 0 {
		return nil
	}
	base := gapMs / int64(n)
	remainder := gapMs % int64(n)
	pads := make([]int64, n)
	for i := range pads {
		pads[i] = base
	}
	for i := int64(0); i < remainder; i++ {
		pads[int64(n)-1-i]++
	}
	return pads
}

// fallbackFill covers a break with a single filler asset when no
// interstitials are available.
func (f *Filler) fallbackFill(ctx context.Context, spec model.BreakSpec) ([]model.ScheduledSegment, error) {
	fillers, err := f.lib.FillerAssets(ctx, 1<<62, 1)
	if err != nil || len(fillers) == 0 {
		return nil, fmt.Errorf("breakfill: no fallback filler available for break %d: %w", spec.BreakIndex, err)
	}
	filler := fillers[0]
	if filler.DurationMs < spec.DurationMs {
		return nil, &ErrFallbackFillerTooShort{BreakDurationMs: spec.DurationMs, FillerDurationMs: filler.DurationMs}
	}
	return []model.ScheduledSegment{{
		SegmentType:       model.SegmentFiller,
		AssetURI:          filler.AssetURI,
		SegmentDurationMs: spec.DurationMs,
		BreakIndex:        spec.BreakIndex,
	}}, nil
}

func segmentTypeOf(a assetlibrary.FillerAsset) model.SegmentType {
	if a.AssetType != "" {
		return a.AssetType
	}
	return model.SegmentAd
}
