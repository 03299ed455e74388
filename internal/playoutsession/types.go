// Package playoutsession implements the sink client (§4.11): an opaque,
// bidirectional client to the external AIR render sink, optionally wrapped
// in a circuit breaker (BreakerClient) so a struggling sink fails feeds
// fast instead of wedging the feed-ahead loop. Feeds are not retried or
// rate-limited here.
package playoutsession

import (
	"fmt"

	"github.com/retrovue/core/internal/domain/model"
)

// VersionInfo is the sink's handshake response.
type VersionInfo struct {
	Version      string
	ProtocolMajor int
}

// Transport names the output binding attach_stream targets.
type Transport string

const (
	TransportSRT  Transport = "srt"
	TransportRTMP Transport = "rtmp"
	TransportNDI  Transport = "ndi"
)

// AttachStreamRequest binds a channel's output to a transport endpoint.
type AttachStreamRequest struct {
	Transport       Transport
	Endpoint        string
	ReplaceExisting bool
}

// BlockPlan is the wire-level unit fed to the sink: one execution entry's
// segments, plus the JIP seeding adjustment (§4.10.2) when this is the
// session's first feed.
type BlockPlan struct {
	BlockID             string
	ChannelID           string
	StartUTCMs          int64
	EndUTCMs            int64
	Segments            []model.ScheduledSegment
	InitialOffsetMs     int64 // non-zero only for the first block of a JIP-seeded session
}

// FeedResult is the sink's acceptance decision for one FeedBlockPlan call.
type FeedResult string

const (
	FeedAccepted FeedResult = "accepted"
	FeedQueueFull FeedResult = "queue_full"
	FeedRejected FeedResult = "rejected"
)

// BlockCompleted reports a block the sink finished playing.
type BlockCompleted struct {
	BlockID    string
	StartUTCMs int64
	EndUTCMs   int64
	FinalCTMs  int64 // the sink's own continuous-time counter at completion
	TotalMs    int64
}

// SessionEnded reports the sink tearing down the session unilaterally.
type SessionEnded struct {
	Reason string
}

// BlockEvent is the sum type delivered by SubscribeBlockEvents: exactly one
// of Completed or Ended is non-nil.
type BlockEvent struct {
	Completed *BlockCompleted
	Ended     *SessionEnded
}

// SessionTransportError wraps a failure in the underlying transport
// (connection drop, deadline exceeded, sink-side abort) distinct from a
// FeedRejected business decision.
type SessionTransportError struct {
	Op  string
	Err error
}

func (e *SessionTransportError) Error() string {
	return fmt.Sprintf("playoutsession: %s: %v", e.Op, e.Err)
}

func (e *SessionTransportError) Unwrap() error { return e.Err }
