package wrappers

import (
	"github.com/zerofox-oss/go-msg-wrappers/wrappers/semconv"
	"go.opentelemetry.io/otel/propagation"
)

// HeaderGetter exposes the transport headers of a request to the
// propagator. It is the only place the wrapper touches the concrete
// message representation.
type HeaderGetter[R any] interface {
	// Keys returns the header names carried by request.
	Keys(request R) []string

	// Get returns the value of the header key, or false when absent.
	Get(request R, key string) (string, bool)
}

// headerCarrier adapts a HeaderGetter to a read-only propagation.TextMapCarrier.
type headerCarrier[R any] struct {
	getter  HeaderGetter[R]
	request R
}

var _ propagation.TextMapCarrier = headerCarrier[any]{}

func (c headerCarrier[R]) Get(key string) string {
	v, _ := c.getter.Get(c.request, key)
	return v
}

// Set is a no-op; inbound headers are never modified.
func (c headerCarrier[R]) Set(string, string) {}

func (c headerCarrier[R]) Keys() []string {
	keys := c.getter.Keys(c.request)
	if keys == nil {
		return []string{}
	}
	return keys
}

// RequestHeaderGetter returns a HeaderGetter that reads headers through
// ProcessRequest.MessageHeader, using the first value of each header.
// ProcessRequest cannot enumerate its headers, so Keys is always empty;
// propagators that look headers up by name are unaffected.
func RequestHeaderGetter[R semconv.ProcessRequest]() HeaderGetter[R] {
	return requestHeaderGetter[R]{}
}

type requestHeaderGetter[R semconv.ProcessRequest] struct{}

func (requestHeaderGetter[R]) Keys(R) []string {
	return []string{}
}

func (requestHeaderGetter[R]) Get(request R, key string) (string, bool) {
	vv := request.MessageHeader(key)
	if len(vv) == 0 {
		return "", false
	}
	return vv[0], true
}
