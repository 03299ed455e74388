// Package epg implements EPG derivation (§4.4): a pure projection from a
// ScheduleDayArtifact to an ordered sequence of EPGEvents, and an XMLTV
// writer for the viewer-facing guide.
package epg

import (
	"context"
	"fmt"

	"github.com/retrovue/core/internal/assetlibrary"
	"github.com/retrovue/core/internal/domain/model"
)

// ErrNonContiguousSlots is raised when two adjacent resolved slots don't
// seam together cleanly; EPG derivation shares the transmission log's seam
// invariant because both are projections of the same resolved day.
type ErrNonContiguousSlots struct {
	Index              int
	PreviousEndUTCMs   int64
	NextStartUTCMs     int64
}

func (e *ErrNonContiguousSlots) Error() string {
	return fmt.Sprintf("slot %d starts at %d, expected %d", e.Index, e.NextStartUTCMs, e.PreviousEndUTCMs)
}

// DeriveEvents projects a resolved day into one EPGEvent per slot, in
// order, pulling viewer-facing text from the asset library. It performs no
// writes and has no side effects beyond the library reads.
func DeriveEvents(ctx context.Context, lib assetlibrary.Library, day model.ScheduleDayArtifact) ([]model.EPGEvent, error) {
	events := make([]model.EPGEvent, 0, len(day.Slots))

	for i, slot := range day.Slots {
		if i > 0 {
			prev := day.Slots[i-1]
			if slot.UTCStartMs != prev.UTCEndMs {
				return nil, &ErrNonContiguousSlots{Index: i, PreviousEndUTCMs: prev.UTCEndMs, NextStartUTCMs: slot.UTCStartMs}
			}
		}

		title, err := lib.Title(ctx, slot.ProgramRef)
		if err != nil {
			return nil, fmt.Errorf("epg: title for %v: %w", slot.ProgramRef, err)
		}
		synopsis, err := lib.Synopsis(ctx, slot.ProgramRef)
		if err != nil {
			return nil, fmt.Errorf("epg: synopsis for %v: %w", slot.ProgramRef, err)
		}

		events = append(events, model.EPGEvent{
			ChannelID:  day.ChannelID,
			UTCStartMs: slot.UTCStartMs,
			UTCEndMs:   slot.UTCEndMs,
			Title:      title,
			Synopsis:   synopsis,
			ProgramRef: slot.ProgramRef,
		})
	}
	return events, nil
}
