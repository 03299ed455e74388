package playoutsession

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered once at package init so GRPCSinkClient can
// exchange plain Go structs over gRPC without a protobuf code-generation
// step, the same technique grpc-go's own json codec example uses.
const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
