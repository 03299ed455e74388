package playoutsession

import (
	"context"
	"fmt"

	"github.com/retrovue/core/internal/clock"
	"github.com/retrovue/core/internal/log"
)

// Session drives one channel's sink connection: handshake, attach, enter
// block-plan mode, and expose block events annotated with the drift
// metric (§4.11). It holds no feed-ahead policy itself — that lives in
// channelmanager, which is the only caller that knows block ordering.
type Session struct {
	client SinkClient
	clk    clock.MasterClock
}

// NewSession wraps a SinkClient with the injected clock the drift metric
// is computed against. Tests inject a fake, stepped clock so drift
// assertions never depend on real wall-clock timing.
func NewSession(client SinkClient, clk clock.MasterClock) *Session {
	return &Session{client: client, clk: clk}
}

// Open runs the handshake → attach → start-block-plan-session sequence.
func (s *Session) Open(ctx context.Context, channelID, programFormat string, attach AttachStreamRequest) error {
	if _, err := s.client.GetVersion(ctx); err != nil {
		return fmt.Errorf("playoutsession: handshake: %w", err)
	}
	if err := s.client.AttachStream(ctx, attach); err != nil {
		return fmt.Errorf("playoutsession: attach: %w", err)
	}
	if err := s.client.StartBlockPlanSession(ctx, channelID, programFormat); err != nil {
		return fmt.Errorf("playoutsession: start block-plan session: %w", err)
	}
	return nil
}

// FeedBlockPlan delivers one block to the sink.
func (s *Session) FeedBlockPlan(ctx context.Context, plan BlockPlan) (FeedResult, error) {
	return s.client.FeedBlockPlan(ctx, plan)
}

// CompletedEvent pairs a BlockCompleted with the drift metric computed
// against the injected clock at observation time.
type CompletedEvent struct {
	BlockCompleted
	DeltaMs int64 // clock.now_utc_ms - scheduled_end_ms, observability only
}

// Events wraps the raw sink event stream, stamping completions with the
// drift metric. Completions arrive on the first channel; a SessionEnded
// arrives on the second, after which both channels are closed.
func (s *Session) Events(ctx context.Context) (<-chan CompletedEvent, <-chan SessionEnded, error) {
	raw, err := s.client.SubscribeBlockEvents(ctx)
	if err != nil {
		return nil, nil, err
	}

	completed := make(chan CompletedEvent)
	ended := make(chan SessionEnded, 1)

	go func() {
		defer close(completed)
		defer close(ended)
		for ev := range raw {
			switch {
			case ev.Completed != nil:
				delta := s.clk.NowUTCMs() - ev.Completed.EndUTCMs
				logEventDrift(ctx, ev.Completed.BlockID, delta)
				select {
				case completed <- CompletedEvent{BlockCompleted: *ev.Completed, DeltaMs: delta}:
				case <-ctx.Done():
					return
				}
			case ev.Ended != nil:
				select {
				case ended <- *ev.Ended:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return completed, ended, nil
}

func logEventDrift(ctx context.Context, blockID string, deltaMs int64) {
	log.FromContext(ctx).Debug().Str("block_id", blockID).Int64("delta_ms", deltaMs).Msg("block completed")
}

// Close tears down the underlying sink connection.
func (s *Session) Close() error { return s.client.Close() }
