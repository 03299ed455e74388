package playoutsession

import "context"

// SinkClient is the full capability set PlayoutSession needs from the
// external sink. GRPCSinkClient is the production implementation; tests
// substitute a fake.
type SinkClient interface {
	GetVersion(ctx context.Context) (VersionInfo, error)
	AttachStream(ctx context.Context, req AttachStreamRequest) error
	StartBlockPlanSession(ctx context.Context, channelID, programFormat string) error
	FeedBlockPlan(ctx context.Context, plan BlockPlan) (FeedResult, error)

	// SubscribeBlockEvents returns a channel the caller drains until it
	// closes (session end) or ctx is cancelled (SINGLE-SUBSCRIPTION,
	// TEARDOWN-IMMEDIATE: cancelling ctx must close this promptly).
	SubscribeBlockEvents(ctx context.Context) (<-chan BlockEvent, error)

	Close() error
}
