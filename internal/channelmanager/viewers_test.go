package channelmanager

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestViewerTracker_StartFiresOnZeroToOne(t *testing.T) {
	var starts, stops int32
	v := NewViewerTracker(
		func(ctx context.Context) error { atomic.AddInt32(&starts, 1); return nil },
		func(ctx context.Context) error { atomic.AddInt32(&stops, 1); return nil },
	)

	require.NoError(t, v.Attach(context.Background()))
	require.NoError(t, v.Attach(context.Background()))
	require.Equal(t, 2, v.Count())
	require.Equal(t, int32(1), atomic.LoadInt32(&starts), "second attach must not re-fire start")
}

func TestViewerTracker_StopFiresOnNToZero(t *testing.T) {
	var stops int32
	v := NewViewerTracker(
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { atomic.AddInt32(&stops, 1); return nil },
	)

	require.NoError(t, v.Attach(context.Background()))
	require.NoError(t, v.Attach(context.Background()))
	require.NoError(t, v.Detach(context.Background()))
	require.Equal(t, int32(0), atomic.LoadInt32(&stops), "must not stop until last viewer detaches")

	require.NoError(t, v.Detach(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&stops))
	require.Equal(t, 0, v.Count())
}

func TestViewerTracker_DetachWithNoViewersIsNoOp(t *testing.T) {
	v := NewViewerTracker(nil, nil)
	require.NoError(t, v.Detach(context.Background()))
	require.Equal(t, 0, v.Count())
}

func TestViewerTracker_StartFailureRevertsCount(t *testing.T) {
	v := NewViewerTracker(
		func(ctx context.Context) error { return context.Canceled },
		func(ctx context.Context) error { return nil },
	)
	err := v.Attach(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, v.Count())
}
