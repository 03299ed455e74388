package playoutsession

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
)

// sinkServiceName is the gRPC service path the sink exposes; the .proto
// contract lives at api/sink/v1/sink.proto and is the source of truth for
// the method set below.
const sinkServiceName = "/retrovue.sink.v1.PlayoutSink/"

// GRPCSinkClient is the production SinkClient, talking to the sink over a
// standard *grpc.ClientConn using the package's json codec (registered in
// jsoncodec.go) in place of generated protobuf bindings.
type GRPCSinkClient struct {
	conn *grpc.ClientConn
}

// Dial opens a gRPC connection to the sink at target (host:port).
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*GRPCSinkClient, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)))
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("playoutsession: dial %s: %w", target, err)
	}
	return &GRPCSinkClient{conn: conn}, nil
}

func (c *GRPCSinkClient) Close() error { return c.conn.Close() }

func (c *GRPCSinkClient) GetVersion(ctx context.Context) (VersionInfo, error) {
	var out VersionInfo
	if err := c.conn.Invoke(ctx, sinkServiceName+"GetVersion", struct{}{}, &out); err != nil {
		return VersionInfo{}, &SessionTransportError{Op: "GetVersion", Err: err}
	}
	return out, nil
}

func (c *GRPCSinkClient) AttachStream(ctx context.Context, req AttachStreamRequest) error {
	var ack struct{}
	if err := c.conn.Invoke(ctx, sinkServiceName+"AttachStream", req, &ack); err != nil {
		return &SessionTransportError{Op: "AttachStream", Err: err}
	}
	return nil
}

func (c *GRPCSinkClient) StartBlockPlanSession(ctx context.Context, channelID, programFormat string) error {
	req := struct {
		ChannelID     string `json:"channel_id"`
		ProgramFormat string `json:"program_format"`
	}{channelID, programFormat}
	var ack struct{}
	if err := c.conn.Invoke(ctx, sinkServiceName+"StartBlockPlanSession", req, &ack); err != nil {
		return &SessionTransportError{Op: "StartBlockPlanSession", Err: err}
	}
	return nil
}

func (c *GRPCSinkClient) FeedBlockPlan(ctx context.Context, plan BlockPlan) (FeedResult, error) {
	var result struct {
		Result FeedResult `json:"result"`
	}
	if err := c.conn.Invoke(ctx, sinkServiceName+"FeedBlockPlan", plan, &result); err != nil {
		return "", &SessionTransportError{Op: "FeedBlockPlan", Err: err}
	}
	return result.Result, nil
}

// blockEventWire is the JSON-codec wire shape for one SubscribeBlockEvents
// server-stream message; exactly one field is populated per message.
type blockEventWire struct {
	Completed *BlockCompleted `json:"completed,omitempty"`
	Ended     *SessionEnded   `json:"ended,omitempty"`
}

func (c *GRPCSinkClient) SubscribeBlockEvents(ctx context.Context) (<-chan BlockEvent, error) {
	desc := &grpc.StreamDesc{StreamName: "SubscribeBlockEvents", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, sinkServiceName+"SubscribeBlockEvents")
	if err != nil {
		return nil, &SessionTransportError{Op: "SubscribeBlockEvents", Err: err}
	}
	if err := stream.SendMsg(struct{}{}); err != nil {
		return nil, &SessionTransportError{Op: "SubscribeBlockEvents.Send", Err: err}
	}
	if err := stream.CloseSend(); err != nil {
		return nil, &SessionTransportError{Op: "SubscribeBlockEvents.CloseSend", Err: err}
	}

	out := make(chan BlockEvent)
	go func() {
		defer close(out)
		for {
			var wire blockEventWire
			if err := stream.RecvMsg(&wire); err != nil {
				if err != io.EOF && ctx.Err() == nil {
					out <- BlockEvent{Ended: &SessionEnded{Reason: err.Error()}}
				}
				return
			}
			select {
			case out <- BlockEvent{Completed: wire.Completed, Ended: wire.Ended}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ SinkClient = (*GRPCSinkClient)(nil)
