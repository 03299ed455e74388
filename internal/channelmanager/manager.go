package channelmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/retrovue/core/internal/clock"
	"github.com/retrovue/core/internal/fsm"
	"github.com/retrovue/core/internal/log"
	"github.com/retrovue/core/internal/metrics"
	"github.com/retrovue/core/internal/playoutsession"
	"github.com/retrovue/core/internal/telemetry"
)

// Config parameterizes one channel's runtime.
type Config struct {
	ChannelID       string
	ProgramFormat   string
	Attach          playoutsession.AttachStreamRequest
	PreloadBudgetMs int64
	PollInterval    clock.Timer
}

// Channel wires the boundary lifecycle FSM, JIP seeding, the feed-ahead
// loop, and viewer-triggered start/stop together for a single channel
// (§4.10). It is the sole owner of the channel's PlayoutSession: nothing
// else in the process may call playoutsession methods directly.
type Channel struct {
	cfg        Config
	window     windowSource
	session    *playoutsession.Session
	clk        clock.MasterClock
	fsm        *fsm.Machine[BoundaryState, BoundaryEvent]
	viewers    *ViewerTracker
	asrunStore AsRunRecorder

	mu         sync.Mutex
	cancelFeed context.CancelFunc
	feedDone   chan struct{}
}

// NewChannel builds a channel runtime. The session's underlying SinkClient
// should already be wrapped with playoutsession.NewBreakerClient by the
// caller, since circuit-breaking is a sink-connection concern, not a
// channel-lifecycle one. asrunStore may be nil to disable as-run
// attestation logging (tests).
func NewChannel(cfg Config, window windowSource, session *playoutsession.Session, clk clock.MasterClock, asrunStore AsRunRecorder) (*Channel, error) {
	machine, err := fsm.New(BoundaryNone, boundaryTransitions)
	if err != nil {
		return nil, err
	}
	c := &Channel{cfg: cfg, window: window, session: session, clk: clk, fsm: machine, asrunStore: asrunStore}
	c.viewers = NewViewerTracker(c.start, c.stop)
	return c, nil
}

// Attach registers a viewer, starting the channel runtime on 0→1.
func (c *Channel) Attach(ctx context.Context) error {
	return c.viewers.Attach(ctx)
}

// Detach removes a viewer, stopping the channel runtime on N→0 (bounded by
// TEARDOWN-IMMEDIATE).
func (c *Channel) Detach(ctx context.Context) error {
	return c.viewers.Detach(ctx)
}

// start drives NONE → PLANNED → PRELOAD_ISSUED → SWITCH_SCHEDULED →
// SWITCH_ISSUED → LIVE, seeds JIP, and launches the feed-ahead loop.
func (c *Channel) start(ctx context.Context) error {
	if err := c.fire(ctx, EventPlan); err != nil {
		return err
	}

	active, err := ResolveActiveEntry(c.window, c.clk.NowUTCMs())
	if err != nil {
		c.forceFail(ctx, err)
		return fmt.Errorf("channelmanager: resolve active entry for %s: %w", c.cfg.ChannelID, err)
	}

	if err := c.fire(ctx, EventIssuePreload); err != nil {
		return err
	}
	if err := c.session.Open(ctx, c.cfg.ChannelID, c.cfg.ProgramFormat, c.cfg.Attach); err != nil {
		c.forceFail(ctx, err)
		return err
	}
	if err := c.fire(ctx, EventScheduleSwitch); err != nil {
		return err
	}

	segIdx, withinOffset := AdjustFirstFeedOffset(active.Entry, active.BlockOffsetMs)
	seedEntry := SeedFirstFeedEntry(active.Entry, segIdx, withinOffset)
	firstPlan := toBlockPlan(seedEntry, active.BlockOffsetMs)
	if _, err := c.session.FeedBlockPlan(ctx, firstPlan); err != nil {
		c.forceFail(ctx, err)
		return err
	}
	if err := c.fire(ctx, EventIssueSwitch); err != nil {
		return err
	}
	if err := c.fire(ctx, EventGoLive); err != nil {
		return err
	}

	completed, ended, err := c.session.Events(ctx)
	if err != nil {
		c.forceFail(ctx, err)
		return err
	}

	feedCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFeed = cancel
	c.feedDone = make(chan struct{})
	c.mu.Unlock()

	feeder := NewFeeder(c.cfg.ChannelID, c.window, c.session, c.clk, c.cfg.PollInterval, c.asrunStore, c.cfg.PreloadBudgetMs)
	feeder.seedFed(seedEntry)
	go func() {
		defer close(c.feedDone)
		if err := feeder.Run(feedCtx, active.Entry.StartUTCMs, completed); err != nil && !errors.Is(err, ErrFeedAheadStopped) {
			log.FromContext(ctx).Warn().Str("channel_id", c.cfg.ChannelID).Err(err).Msg("feed-ahead loop stopped")
			// A SessionTransportError (or any other hard feed failure) can
			// leave a block fed but never confirmed complete; attest it
			// incomplete rather than silently dropping it from the as-run
			// record (spec's as-run write path requires this mapping).
			now := c.clk.NowUTCMs()
			for _, entry := range feeder.PendingEntries() {
				recordAsRun(ctx, c.asrunStore, entry, entry.StartUTCMs, now, now, true)
			}
			c.forceFail(ctx, err)
		}
	}()

	go func() {
		for range ended {
			now := c.clk.NowUTCMs()
			for _, entry := range feeder.PendingEntries() {
				recordAsRun(ctx, c.asrunStore, entry, entry.StartUTCMs, now, now, true)
			}
			c.forceFail(ctx, fmt.Errorf("sink ended session"))
		}
	}()

	return nil
}

// stop tears down the feed-ahead loop and sink session, then returns the
// machine to NONE so a future viewer can start fresh.
func (c *Channel) stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancelFeed
	done := c.feedDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	closeErr := c.session.Close()
	if c.fsm.State() == BoundaryFailedTerminal {
		return closeErr
	}
	if err := c.fire(ctx, EventReturnToNone); err != nil {
		return err
	}
	return closeErr
}

func (c *Channel) fire(ctx context.Context, ev BoundaryEvent) error {
	ctx, span := telemetry.Tracer("channelmanager").Start(ctx, "boundary.fire")
	defer span.End()
	span.SetAttributes(
		attribute.String("channel_id", c.cfg.ChannelID),
		attribute.String("event", string(ev)),
	)

	from := c.fsm.State()
	if _, err := c.fsm.Fire(ctx, ev); err != nil {
		span.SetAttributes(attribute.Bool("failed", true))
		c.forceFail(ctx, err)
		return fmt.Errorf("channelmanager: boundary transition %s failed for %s: %w", ev, c.cfg.ChannelID, err)
	}

	metrics.BoundaryTransitionsTotal.WithLabelValues(c.cfg.ChannelID, string(from), string(ev)).Inc()

	meter := telemetry.Meter("channelmanager")
	transitions, _ := meter.Int64Counter("retrovue_boundary_transitions",
		otelmetric.WithDescription("Boundary lifecycle transitions fired"))
	transitions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("channel_id", c.cfg.ChannelID),
		attribute.String("from", string(from)),
		attribute.String("event", string(ev)),
	))

	return nil
}

func (c *Channel) forceFail(ctx context.Context, cause error) {
	log.FromContext(ctx).Error().Str("channel_id", c.cfg.ChannelID).Err(cause).Msg("channel forced to FAILED_TERMINAL")
	c.fsm.ForceState(BoundaryFailedTerminal)
}

// State reports the current boundary lifecycle state.
func (c *Channel) State() BoundaryState {
	return c.fsm.State()
}
