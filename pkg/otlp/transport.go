package otlp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// Transport ships serialized payloads to a collector. The content type
// determines the serializer encoding; retry and backoff are the transport's
// own concern.
type Transport interface {
	ContentType() string
	Send(ctx context.Context, payload []byte) error
}

// HTTPTransport posts payloads to an OTLP/HTTP endpoint.
type HTTPTransport struct {
	endpoint    string
	contentType string
	client      *http.Client
}

// NewHTTPTransport creates an HTTP transport for one of the supported
// content types. A nil client uses http.DefaultClient.
func NewHTTPTransport(endpoint, contentType string, client *http.Client) (*HTTPTransport, error) {
	switch contentType {
	case ContentTypeProtobuf, ContentTypeJSON, ContentTypeNDJSON:
	default:
		return nil, sdkerrors.ErrNotSupportedContentType
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{endpoint: endpoint, contentType: contentType, client: client}, nil
}

func (t *HTTPTransport) ContentType() string { return t.contentType }

// Send posts the payload and fails on any non-2xx response.
func (t *HTTPTransport) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return sdkerrors.Wrap(err, sdkerrors.CodeTransport, "build request")
	}
	req.Header.Set("Content-Type", t.contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return sdkerrors.Wrap(err, sdkerrors.CodeTransport, "post")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return sdkerrors.Newf(sdkerrors.CodeTransport,
			"collector returned %s", resp.Status)
	}
	return nil
}

func (t *HTTPTransport) String() string {
	return fmt.Sprintf("otlp/http(%s)", t.endpoint)
}
