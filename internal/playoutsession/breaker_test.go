package playoutsession

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBreakerClient_TripsAfterConsecutiveFailures(t *testing.T) {
	fake := newFakeSinkClient()
	fake.feedErr = errors.New("boom")
	breaker := NewBreakerClient("chan-1", fake)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := breaker.FeedBlockPlan(ctx, BlockPlan{BlockID: "blk-1"})
		require.Error(t, err)
	}

	// Circuit should now be open: the call fails fast without reaching the
	// underlying client's (still-erroring) FeedBlockPlan.
	_, err := breaker.FeedBlockPlan(ctx, BlockPlan{BlockID: "blk-1"})
	require.Error(t, err)
}

func TestBreakerClient_PassesThroughSuccess(t *testing.T) {
	fake := newFakeSinkClient()
	breaker := NewBreakerClient("chan-1", fake)

	result, err := breaker.FeedBlockPlan(context.Background(), BlockPlan{BlockID: "blk-1"})
	require.NoError(t, err)
	require.Equal(t, FeedAccepted, result)
}
