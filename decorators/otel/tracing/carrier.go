package tracing

import (
	msg "github.com/zerofox-oss/go-msg-wrappers"
	"github.com/zerofox-oss/go-msg-wrappers/wrappers"
	"go.opentelemetry.io/otel/propagation"
)

type msgAttributesTextCarrier struct {
	attributes *msg.Attributes
}

var _ propagation.TextMapCarrier = msgAttributesTextCarrier{}

func (m msgAttributesTextCarrier) Get(key string) string {
	return m.attributes.Get(key)
}

func (m msgAttributesTextCarrier) Set(key string, value string) {
	m.attributes.Set(key, value)
}

func (m msgAttributesTextCarrier) Keys() []string {
	return m.attributes.Keys()
}

// attributesGetter reads propagation headers from the message attributes.
type attributesGetter struct{}

var _ wrappers.HeaderGetter[*MessageRequest] = attributesGetter{}

func (attributesGetter) Keys(r *MessageRequest) []string {
	if r == nil || r.Message == nil {
		return []string{}
	}
	return r.Message.Attributes.Keys()
}

func (attributesGetter) Get(r *MessageRequest, key string) (string, bool) {
	if r == nil || r.Message == nil {
		return "", false
	}
	vv := r.Message.Attributes.Values(key)
	if len(vv) == 0 {
		return "", false
	}
	return vv[0], true
}
