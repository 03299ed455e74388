package channelmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/retrovue/core/internal/clock"
	"github.com/retrovue/core/internal/domain/model"
	"github.com/retrovue/core/internal/log"
	"github.com/retrovue/core/internal/metrics"
	"github.com/retrovue/core/internal/playoutsession"
)

// ErrFeedAheadStopped is returned by Feeder.Run when ctx is canceled, to
// distinguish a requested stop from an unexpected failure.
var ErrFeedAheadStopped = errors.New("channelmanager: feed-ahead loop stopped")

// windowSource is the read surface the feed-ahead loop needs from the
// execution window store.
type windowSource interface {
	windowLookup
	GetWindowEnd() (int64, bool)
	GetQueuedEntries(afterUTCMs int64) []model.ExecutionEntry
}

// Feeder drives the feed-ahead loop for one channel: it feeds entries to
// the sink strictly in order, never more than two blocks ahead of "now",
// never mid-block, exactly once per block, and never once the window is
// exhausted (§4.10.3):
//
//   - EXACTLY-ONCE: a block_id is fed at most one time per session.
//   - NO-MID-BLOCK: a feed only ever targets the entry immediately after
//     the one currently live (or, at session start, the JIP-seeded entry).
//   - TWO-BLOCK-WINDOW: the loop never holds more than two unconsumed
//     feeds outstanding at the sink (the live block plus one preloaded).
//   - NO-FEED-AFTER-END: once the window is exhausted, the loop waits
//     (polling the clock) rather than feeding nothing as if it were a
//     terminal condition.
//
// Every feed is also gated on runway readiness (§4.10.6, INV-RUNWAY-001/002):
// a channel whose queued material can't cover the configured preload budget,
// or whose fences aren't contiguous, is a hard failure rather than a feed
// the sink would eventually starve on.
type Feeder struct {
	channelID       string
	window          windowSource
	session         *playoutsession.Session
	clk             clock.MasterClock
	pollEvery       clock.Timer
	asrunStore      AsRunRecorder
	preloadBudgetMs int64

	mu         sync.Mutex
	fed        map[string]struct{}
	fedEntries map[string]model.ExecutionEntry
}

// NewFeeder builds a feeder for channelID. pollInterval controls how often
// the loop rechecks the window when it is caught up (no work to do).
// asrunStore may be nil to disable as-run attestation (tests).
func NewFeeder(channelID string, window windowSource, session *playoutsession.Session, clk clock.MasterClock, pollInterval clock.Timer, asrunStore AsRunRecorder, preloadBudgetMs int64) *Feeder {
	return &Feeder{
		channelID:       channelID,
		window:          window,
		session:         session,
		clk:             clk,
		pollEvery:       pollInterval,
		asrunStore:      asrunStore,
		preloadBudgetMs: preloadBudgetMs,
		fed:             make(map[string]struct{}),
		fedEntries:      make(map[string]model.ExecutionEntry),
	}
}

// seedFed registers the JIP seed block fed directly by Channel.start before
// the feed-ahead loop begins, so its completion (or, on session failure,
// its incompleteness) is still tracked by this feeder.
func (f *Feeder) seedFed(entry model.ExecutionEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fed[entry.BlockID] = struct{}{}
	f.fedEntries[entry.BlockID] = entry
}

// PendingEntries returns the entries fed but not yet confirmed complete —
// Channel uses this to attest an incomplete block when the sink ends the
// session unexpectedly instead of reporting BlockCompleted.
func (f *Feeder) PendingEntries() []model.ExecutionEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ExecutionEntry, 0, len(f.fedEntries))
	for _, e := range f.fedEntries {
		out = append(out, e)
	}
	return out
}

func (f *Feeder) markFed(entry model.ExecutionEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fed[entry.BlockID] = struct{}{}
	f.fedEntries[entry.BlockID] = entry
}

func (f *Feeder) isFed(blockID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.fed[blockID]
	return ok
}

func (f *Feeder) handleCompleted(ctx context.Context, ev playoutsession.CompletedEvent) {
	f.mu.Lock()
	entry, known := f.fedEntries[ev.BlockID]
	delete(f.fed, ev.BlockID)
	delete(f.fedEntries, ev.BlockID)
	f.mu.Unlock()
	if !known {
		return
	}
	recordAsRun(ctx, f.asrunStore, entry, ev.StartUTCMs, ev.EndUTCMs, f.clk.NowUTCMs(), false)
}

// Run feeds entries until ctx is canceled. lastFedEndUTCMs seeds the
// "currently live" cursor: pass the JIP-seeded entry's StartUTCMs-1 on a
// fresh session, or the last successfully fed entry's StartUTCMs on resume.
// completed receives BlockCompleted notifications from the sink (typically
// the channel returned by Session.Events); the loop uses it to track how
// many feeds are genuinely outstanding rather than guessing from elapsed
// time, which is what makes TWO-BLOCK-WINDOW exact instead of approximate.
func (f *Feeder) Run(ctx context.Context, lastFedEndUTCMs int64, completed <-chan playoutsession.CompletedEvent) error {
	cursor := lastFedEndUTCMs
	// A JIP seed registered through seedFed is already at the sink and
	// counts against TWO-BLOCK-WINDOW.
	f.mu.Lock()
	outstanding := len(f.fedEntries)
	f.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ErrFeedAheadStopped
		case ev, ok := <-completed:
			if !ok {
				return ErrFeedAheadStopped
			}
			f.handleCompleted(ctx, ev)
			if outstanding > 0 {
				outstanding--
			}
			continue
		default:
		}

		if outstanding >= 2 {
			select {
			case ev, ok := <-completed:
				if !ok {
					return ErrFeedAheadStopped
				}
				f.handleCompleted(ctx, ev)
				outstanding--
			case <-ctx.Done():
				return ErrFeedAheadStopped
			}
			continue
		}

		next, ok := f.window.GetNextEntry(cursor)
		if !ok {
			// NO-FEED-AFTER-END: the window is exhausted for now; wait for
			// the horizon manager to extend it rather than treating this as
			// terminal.
			f.waitTick(ctx)
			if err := ctx.Err(); err != nil {
				return ErrFeedAheadStopped
			}
			continue
		}

		if f.isFed(next.BlockID) {
			// EXACTLY-ONCE guard: should be unreachable given the cursor
			// discipline below, but never re-feed a seen block_id.
			cursor = next.StartUTCMs
			continue
		}

		queued := f.window.GetQueuedEntries(cursor)
		if err := ValidateRunway(f.channelID, queued, f.preloadBudgetMs); err != nil {
			return err
		}

		result, err := f.session.FeedBlockPlan(ctx, toBlockPlan(next, 0))
		if err != nil {
			return fmt.Errorf("channelmanager: feed block %s: %w", next.BlockID, err)
		}
		logFeedResult(ctx, f.channelID, next.BlockID, result)
		if result != playoutsession.FeedAccepted {
			return fmt.Errorf("channelmanager: sink rejected block %s: %s", next.BlockID, result)
		}

		f.markFed(next)
		cursor = next.StartUTCMs // NO-MID-BLOCK: advance exactly one entry at a time
		outstanding++
	}
}

func (f *Feeder) waitTick(ctx context.Context) {
	select {
	case <-f.pollEvery.C():
	case <-ctx.Done():
	}
}

func toBlockPlan(e model.ExecutionEntry, initialOffsetMs int64) playoutsession.BlockPlan {
	return playoutsession.BlockPlan{
		BlockID:         e.BlockID,
		ChannelID:       e.ChannelID,
		StartUTCMs:      e.StartUTCMs,
		EndUTCMs:        e.EndUTCMs,
		Segments:        e.Segments,
		InitialOffsetMs: initialOffsetMs,
	}
}

func logFeedResult(ctx context.Context, channelID, blockID string, result playoutsession.FeedResult) {
	log.FromContext(ctx).Debug().
		Str("channel_id", channelID).
		Str("block_id", blockID).
		Str("result", string(result)).
		Msg("fed block to sink")
	metrics.BlockFeedsTotal.WithLabelValues(channelID, string(result)).Inc()
}
