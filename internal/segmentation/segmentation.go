// Package segmentation implements act-segmentation (§4.5): turning a
// resolved slot into a SegmentedBlock of content spans and unmaterialized
// break slots, ready for break filling.
package segmentation

import (
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
)

// Config carries the channel-level segmentation policy.
type Config struct {
	ChannelType    model.ChannelType
	NumBreaks      int // default 3, used when no chapter markers exist
	FadeDurationMs int64
}

func (c Config) numBreaks() int {
	if c.NumBreaks <= 0 {
		return 3
	}
	return c.NumBreaks
}

// Segmenter turns ResolvedSlots into SegmentedBlocks.
type Segmenter struct {
	cfg Config
}

// NewSegmenter builds a Segmenter for the given channel policy.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Segment produces a SegmentedBlock for one resolved slot.
func (s *Segmenter) Segment(slot model.ResolvedSlot) (model.SegmentedBlock, error) {
	slotDurationMs := slot.UTCEndMs - slot.UTCStartMs
	episodeDurationMs := slot.ResolvedAsset.DurationMs
	if slotDurationMs <= 0 {
		return model.SegmentedBlock{}, fmt.Errorf("segmentation: non-positive slot duration for zone %s", slot.ZoneID)
	}

	block := model.SegmentedBlock{
		UTCStartMs: slot.UTCStartMs,
		UTCEndMs:   slot.UTCEndMs,
		SourceSlot: slot,
	}

	if s.cfg.ChannelType == model.ChannelTypeMovie {
		return s.segmentMovie(block, episodeDurationMs, slotDurationMs)
	}
	return s.segmentNetwork(block, episodeDurationMs, slotDurationMs)
}

// segmentMovie implements the movie-channel rule: one content span, chapter
// markers ignored, surplus slot time (if any) becomes a single filler break.
func (s *Segmenter) segmentMovie(block model.SegmentedBlock, episodeDurationMs, slotDurationMs int64) (model.SegmentedBlock, error) {
	contentDurationMs := episodeDurationMs
	if contentDurationMs > slotDurationMs {
		contentDurationMs = slotDurationMs
	}

	block.Content = []model.ContentSegmentSpec{{
		AssetURI:        block.SourceSlot.ResolvedAsset.AssetURI,
		DurationMs:      contentDurationMs,
		Transition:      model.TransitionNone,
		BreakpointClass: model.BreakpointNone,
	}}

	if surplus := slotDurationMs - episodeDurationMs; surplus > 0 {
		block.Breaks = []model.BreakSpec{{DurationMs: surplus, BreakIndex: 0}}
	}
	return block, nil
}

// segmentNetwork implements the network-channel rule: breaks at first-class
// chapter markers, falling back to num_breaks+1 equal divisions when no
// markers exist (second-class breakpoints).
func (s *Segmenter) segmentNetwork(block model.SegmentedBlock, episodeDurationMs, slotDurationMs int64) (model.SegmentedBlock, error) {
	var breakpoints []int64 // offsets in (0, episodeDurationMs), ascending
	class := model.BreakpointFirstClass

	for _, m := range block.SourceSlot.ResolvedAsset.Markers {
		if m.Kind != model.MarkerChapter {
			continue
		}
		if m.OffsetMs > 0 && m.OffsetMs < episodeDurationMs {
			breakpoints = append(breakpoints, m.OffsetMs)
		}
	}

	if len(breakpoints) == 0 {
		class = model.BreakpointSecondClass
		n := s.cfg.numBreaks()
		interval := episodeDurationMs / int64(n+1)
		for i := 1; i <= n; i++ {
			breakpoints = append(breakpoints, interval*int64(i))
		}
	}

	transition := model.TransitionNone
	if class == model.BreakpointSecondClass {
		transition = model.TransitionFade
	}

	prev := int64(0)
	for i, bp := range breakpoints {
		block.Content = append(block.Content, model.ContentSegmentSpec{
			AssetURI:           block.SourceSlot.ResolvedAsset.AssetURI,
			AssetStartOffsetMs: prev,
			DurationMs:         bp - prev,
			Transition:         transition,
			BreakpointClass:    class,
		})
		block.Breaks = append(block.Breaks, model.BreakSpec{BreakIndex: i})
		prev = bp
	}
	block.Content = append(block.Content, model.ContentSegmentSpec{
		AssetURI:           block.SourceSlot.ResolvedAsset.AssetURI,
		AssetStartOffsetMs: prev,
		DurationMs:         episodeDurationMs - prev,
		Transition:         model.TransitionNone,
		BreakpointClass:    model.BreakpointNone,
	})

	totalAdMs := slotDurationMs - episodeDurationMs
	distributeBreakDurations(block.Breaks, totalAdMs)
	return block, nil
}

// distributeBreakDurations splits totalMs across breaks as floor(total/n)
// each, with the remainder added one millisecond at a time to the *last*
// breaks so early breaks stay uniform (§4.5).
func distributeBreakDurations(breaks []model.BreakSpec, totalMs int64) {
	n := int64(len(breaks))
	if n == 0 {
		return
	}
	base := totalMs / n
	remainder := totalMs % n
	for i := range breaks {
		breaks[i].DurationMs = base
	}
	for i := int64(0); i < remainder; i++ {
		idx := n - 1 - i
		breaks[idx].DurationMs++
	}
}
