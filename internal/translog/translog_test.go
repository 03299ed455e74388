package translog

import (
	"testing"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func filledBlock(assetURI string) model.FilledBlock {
	return model.FilledBlock{
		Segments: []model.ScheduledSegment{
			{SegmentType: model.SegmentContent, AssetURI: assetURI, SegmentDurationMs: 30 * 60_000},
		},
	}
}

func TestAssemble_ContiguousGridAlignedLog(t *testing.T) {
	a := NewAssembler(30)
	anchor := int64(1_700_000_000_000)
	blocks := []model.FilledBlock{filledBlock("a.mp4"), filledBlock("b.mp4"), filledBlock("c.mp4")}

	log, err := a.Assemble("chan-1", "2026-03-10", anchor, blocks)
	require.NoError(t, err)
	require.Len(t, log.Entries, 3)
	require.Equal(t, model.TransmissionLogBuilding, log.State)

	for i, e := range log.Entries {
		require.Equal(t, anchor+int64(i)*30*60_000, e.StartUTCMs)
		require.Regexp(t, "^blk-[0-9a-f]{24}$", e.BlockID)
	}
	// distinct asset identities must hash to distinct block ids even at
	// different starts
	require.NotEqual(t, log.Entries[0].BlockID, log.Entries[1].BlockID)
}

func TestAssemble_DeterministicBlockID(t *testing.T) {
	a := NewAssembler(30)
	anchor := int64(1_700_000_000_000)
	log1, err := a.Assemble("chan-1", "2026-03-10", anchor, []model.FilledBlock{filledBlock("a.mp4")})
	require.NoError(t, err)
	log2, err := a.Assemble("chan-1", "2026-03-10", anchor, []model.FilledBlock{filledBlock("a.mp4")})
	require.NoError(t, err)
	require.Equal(t, log1.Entries[0].BlockID, log2.Entries[0].BlockID)
}

func TestLock_WriteOnce(t *testing.T) {
	a := NewAssembler(30)
	log, err := a.Assemble("chan-1", "2026-03-10", 0, []model.FilledBlock{filledBlock("a.mp4")})
	require.NoError(t, err)

	locked, err := Lock(log)
	require.NoError(t, err)
	require.Equal(t, model.TransmissionLogLocked, locked.State)

	_, err = Lock(locked)
	require.Error(t, err)
	var target *ErrTransmissionLogExists
	require.ErrorAs(t, err, &target)
}

func TestAssemble_RejectsNonGridDuration(t *testing.T) {
	a := NewAssembler(30)
	bad := filledBlock("a.mp4")
	_, err := a.Assemble("chan-1", "2026-03-10", 0, []model.FilledBlock{bad})
	require.NoError(t, err) // single block always aligns; force a contiguity break with two blocks below

	blocks := []model.FilledBlock{filledBlock("a.mp4"), filledBlock("b.mp4")}
	log, err := a.Assemble("chan-1", "2026-03-10", 0, blocks)
	require.NoError(t, err)
	// Tamper with the second entry's start to violate contiguity directly.
	log.Entries[1].StartUTCMs += 1
	require.Error(t, validateSeams(log.Entries, 30*60_000))
}
