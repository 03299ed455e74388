package channelmanager

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/retrovue/core/internal/clock"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/execwindow"
	"github.com/retrovue/core/internal/playoutsession"
	"github.com/stretchr/testify/require"
)

func TestChannel_AttachDetach_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := execwindow.NewStore(0)
	store.AddEntries([]model.ExecutionEntry{
		{BlockID: "blk-1", ChannelID: "chan-1", StartUTCMs: 0, EndUTCMs: 60_000},
		{BlockID: "blk-2", ChannelID: "chan-1", StartUTCMs: 60_000, EndUTCMs: 120_000},
	})

	fake := newFakeFeedSink()
	fakeClock := clock.NewFake(0)
	session := playoutsession.NewSession(fake, fakeClock)

	ch, err := NewChannel(Config{
		ChannelID:     "chan-1",
		ProgramFormat: "hd-1080p",
		PollInterval:  fakeClock.NewTimer(time.Millisecond),
	}, store, session, fakeClock, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ch.Attach(ctx))
	require.Equal(t, BoundaryLive, ch.State())

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ch.Detach(ctx))
	require.Equal(t, BoundaryNone, ch.State())
}
