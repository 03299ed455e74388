// Package translog implements transmission-log assembly & lock (§4.7): the
// final step that turns a broadcast date's FilledBlocks into an immutable,
// grid-aligned TransmissionLog.
package translog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
)

// ErrSeamViolation reports a broken seam invariant (INV-TL-SEAM-001..004).
type ErrSeamViolation struct {
	Code  string // "contiguity" | "grid_duration" | "ordering" | "positive_duration"
	Index int
	Detail string
}

func (e *ErrSeamViolation) Error() string {
	return fmt.Sprintf("seam violation %s at block %d: %s", e.Code, e.Index, e.Detail)
}

// ErrGridMisaligned reports a boundary not divisible by the grid size
// (INV-PLAYLIST-GRID-ALIGNMENT-001), reporting the nearest valid boundaries.
type ErrGridMisaligned struct {
	BoundaryMs int64
	FloorMs    int64
	CeilMs     int64
}

func (e *ErrGridMisaligned) Error() string {
	return fmt.Sprintf("boundary %d not grid-aligned: nearest floor=%d ceil=%d", e.BoundaryMs, e.FloorMs, e.CeilMs)
}

// ErrTransmissionLogExists is raised when a write targets an already-locked
// log; the transmission log is a write-once artifact.
type ErrTransmissionLogExists struct {
	ChannelID     string
	BroadcastDate string
}

func (e *ErrTransmissionLogExists) Error() string {
	return fmt.Sprintf("transmission log %s/%s already locked", e.ChannelID, e.BroadcastDate)
}

// Assembler builds TransmissionLogs from FilledBlocks.
type Assembler struct {
	gridBlockMinutes int
}

// NewAssembler builds an Assembler for the given grid size.
func NewAssembler(gridBlockMinutes int) *Assembler {
	return &Assembler{gridBlockMinutes: gridBlockMinutes}
}

// Assemble concatenates blocks in order, assigns start_utc_ms by stepping
// from anchorUTCMs, computes block_id, validates seam and grid-alignment
// invariants, and returns a log in the "building" state.
func (a *Assembler) Assemble(channelID, broadcastDate string, anchorUTCMs int64, blocks []model.FilledBlock) (model.TransmissionLog, error) {
	gridMs := int64(a.gridBlockMinutes) * 60_000

	entries := make([]model.TransmissionLogEntry, 0, len(blocks))
	cursor := anchorUTCMs
	for i, b := range blocks {
		start := cursor
		end := start + gridMs
		blockID := computeBlockID(blockIdentity(b), start)

		entries = append(entries, model.TransmissionLogEntry{
			BlockID:    blockID,
			BlockIndex: i,
			StartUTCMs: start,
			EndUTCMs:   end,
			Segments:   b.Segments,
		})
		cursor = end
	}

	if err := validateSeams(entries, gridMs); err != nil {
		return model.TransmissionLog{}, err
	}
	if err := validateGridAlignment(entries, anchorUTCMs, gridMs); err != nil {
		return model.TransmissionLog{}, err
	}

	return model.TransmissionLog{
		ChannelID:        channelID,
		BroadcastDate:    broadcastDate,
		GridBlockMinutes: a.gridBlockMinutes,
		State:            model.TransmissionLogBuilding,
		Entries:          entries,
	}, nil
}

// Lock transitions a log from building to locked. Locking an already-locked
// log is an error: the transmission log is write-once.
func Lock(log model.TransmissionLog) (model.TransmissionLog, error) {
	if log.State == model.TransmissionLogLocked {
		return model.TransmissionLog{}, &ErrTransmissionLogExists{ChannelID: log.ChannelID, BroadcastDate: log.BroadcastDate}
	}
	log.State = model.TransmissionLogLocked
	return log, nil
}

// blockIdentity picks the stable identity string a block hashes against:
// the asset URI of its first content segment, or the block's first segment
// asset URI as a fallback for all-break blocks.
func blockIdentity(b model.FilledBlock) string {
	for _, s := range b.Segments {
		if s.SegmentType == model.SegmentContent && s.AssetURI != "" {
			return s.AssetURI
		}
	}
	if len(b.Segments) > 0 {
		return b.Segments[0].AssetURI
	}
	return "empty"
}

// computeBlockID implements the §4.7 step 2 hash: first 96 bits of
// SHA-256("{identity}:{start_utc_ms}"), prefixed "blk-".
func computeBlockID(identity string, startUTCMs int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", identity, startUTCMs)))
	return "blk-" + hex.EncodeToString(sum[:12])
}

// validateSeams checks INV-TL-SEAM-001..004: contiguity, grid duration,
// monotonic ordering, and positive duration.
func validateSeams(entries []model.TransmissionLogEntry, gridMs int64) error {
	for i, e := range entries {
		if e.EndUTCMs <= e.StartUTCMs {
			return &ErrSeamViolation{Code: "positive_duration", Index: i, Detail: "end <= start"}
		}
		if e.EndUTCMs-e.StartUTCMs != gridMs {
			return &ErrSeamViolation{Code: "grid_duration", Index: i, Detail: fmt.Sprintf("duration %dms != grid %dms", e.EndUTCMs-e.StartUTCMs, gridMs)}
		}
		if i > 0 {
			prev := entries[i-1]
			if e.StartUTCMs != prev.EndUTCMs {
				return &ErrSeamViolation{Code: "contiguity", Index: i, Detail: fmt.Sprintf("start %d != previous end %d", e.StartUTCMs, prev.EndUTCMs)}
			}
			if e.StartUTCMs <= prev.StartUTCMs {
				return &ErrSeamViolation{Code: "ordering", Index: i, Detail: "non-monotonic start"}
			}
		}
	}
	return nil
}

// validateGridAlignment checks INV-PLAYLIST-GRID-ALIGNMENT-001: every
// boundary must be divisible by gridMs relative to the anchor.
func validateGridAlignment(entries []model.TransmissionLogEntry, anchorUTCMs, gridMs int64) error {
	for _, e := range entries {
		if rem := (e.StartUTCMs - anchorUTCMs) % gridMs; rem != 0 {
			floor := e.StartUTCMs - rem
			ceil := floor + gridMs
			return &ErrGridMisaligned{BoundaryMs: e.StartUTCMs, FloorMs: floor, CeilMs: ceil}
		}
	}
	return nil
}
