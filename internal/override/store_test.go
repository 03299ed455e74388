package override

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/retrovue/core/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "override.db")
	s, err := OpenStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAssignsMonotonicSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r1, err := s.Record(ctx, model.OverrideRecord{RecordID: "rec-1", Layer: model.OverrideLayerTransmission, TargetID: "chan-1/2026-07-30", ReasonCode: "operator_override"})
	require.NoError(t, err)
	r2, err := s.Record(ctx, model.OverrideRecord{RecordID: "rec-2", Layer: model.OverrideLayerTransmission, TargetID: "chan-1/2026-07-30", ReasonCode: "operator_override"})
	require.NoError(t, err)

	require.Less(t, r1.Sequence, r2.Sequence)
}

func TestStore_PrecedesArtifactReflectsRecordedOverride(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.PrecedesArtifact(ctx, model.OverrideLayerTransmission, "chan-1/2026-07-30")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Record(ctx, model.OverrideRecord{RecordID: "rec-1", Layer: model.OverrideLayerTransmission, TargetID: "chan-1/2026-07-30", ReasonCode: "operator_override"})
	require.NoError(t, err)

	ok, err = s.PrecedesArtifact(ctx, model.OverrideLayerTransmission, "chan-1/2026-07-30")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_ListForTargetOrdersBySequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, model.OverrideRecord{RecordID: "rec-1", Layer: model.OverrideLayerScheduleDay, TargetID: "chan-1", ReasonCode: "a"})
	require.NoError(t, err)
	_, err = s.Record(ctx, model.OverrideRecord{RecordID: "rec-2", Layer: model.OverrideLayerScheduleDay, TargetID: "chan-1", ReasonCode: "b"})
	require.NoError(t, err)

	recs, err := s.ListForTarget(ctx, model.OverrideLayerScheduleDay, "chan-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "rec-1", recs[0].RecordID)
	require.Equal(t, "rec-2", recs[1].RecordID)
}
