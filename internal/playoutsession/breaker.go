package playoutsession

import (
	"context"
	"time"

	"github.com/retrovue/core/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerClient wraps a SinkClient's FeedBlockPlan calls with a circuit
// breaker so a sink in sustained failure stops being hammered by the
// feed-ahead loop: once ReadyToTrip fires, calls fail fast until Timeout
// elapses, then at most MaxRequests half-open probes decide whether to
// close the breaker again.
type BreakerClient struct {
	SinkClient
	channelID string
	cb        *gobreaker.CircuitBreaker[FeedResult]
}

// NewBreakerClient wraps inner with a circuit breaker tuned for a
// low-request-volume control channel (a handful of feeds per block, not a
// high-QPS API): trips after 3 consecutive failures, half-opens after 10s.
// channelID only labels the breaker-trip metric; pass "" where no channel
// context is available (tests).
func NewBreakerClient(channelID string, inner SinkClient) *BreakerClient {
	b := &BreakerClient{SinkClient: inner, channelID: channelID}
	b.cb = gobreaker.NewCircuitBreaker[FeedResult](gobreaker.Settings{
		Name:        "playoutsession.feed",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.SinkBreakerTripsTotal.WithLabelValues(b.channelID).Inc()
			}
		},
	})
	return b
}

func (b *BreakerClient) FeedBlockPlan(ctx context.Context, plan BlockPlan) (FeedResult, error) {
	return b.cb.Execute(func() (FeedResult, error) {
		return b.SinkClient.FeedBlockPlan(ctx, plan)
	})
}

var _ SinkClient = (*BreakerClient)(nil)
