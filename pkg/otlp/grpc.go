package otlp

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// metricsExportMethod is the OTLP metrics service export RPC.
const metricsExportMethod = "/opentelemetry.proto.collector.metrics.v1.MetricsService/Export"

// GRPCTransport sends pre-serialized protobuf payloads over an OTLP gRPC
// connection. The payload is passed through a byte codec so the serializer
// stays the single encoding authority.
type GRPCTransport struct {
	conn *grpc.ClientConn
}

// NewGRPCTransport wraps an established client connection.
func NewGRPCTransport(conn *grpc.ClientConn) *GRPCTransport {
	return &GRPCTransport{conn: conn}
}

func (t *GRPCTransport) ContentType() string { return ContentTypeProtobuf }

// Send invokes the export RPC with the raw payload.
func (t *GRPCTransport) Send(ctx context.Context, payload []byte) error {
	var resp rawMessage
	err := t.conn.Invoke(ctx, metricsExportMethod,
		&rawMessage{data: payload}, &resp, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		return sdkerrors.Wrap(err, sdkerrors.CodeTransport, "grpc export")
	}
	return nil
}

// Shutdown closes the underlying connection.
func (t *GRPCTransport) Shutdown(context.Context) error {
	return t.conn.Close()
}

func (t *GRPCTransport) String() string {
	return fmt.Sprintf("otlp/grpc(%s)", t.conn.Target())
}

type rawMessage struct {
	data []byte
}

// rawCodec moves pre-encoded bytes through the gRPC stack untouched.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*rawMessage)
	if !ok {
		return nil, fmt.Errorf("raw codec: unexpected type %T", v)
	}
	return m.data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*rawMessage)
	if !ok {
		return fmt.Errorf("raw codec: unexpected type %T", v)
	}
	m.data = data
	return nil
}

func (rawCodec) Name() string { return "otelmetric-raw" }
