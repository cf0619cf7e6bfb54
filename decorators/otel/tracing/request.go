package tracing

import (
	"strconv"

	msg "github.com/zerofox-oss/go-msg-wrappers"
	"github.com/zerofox-oss/go-msg-wrappers/wrappers/semconv"
)

// Message attributes read by MessageRequest.
const (
	MessageIDAttribute      = "Message-Id"
	ConversationIDAttribute = "Conversation-Id"
	ClientIDAttribute       = "Client-Id"
	PartitionIDAttribute    = "Partition-Id"
	ContentLengthAttribute  = "Content-Length"
)

// MessageRequest exposes a msg.Message to the process wrapper.
//
// The messaging system and destination are properties of the Receiver
// (see WithSystem and WithDestination); everything else is read from the
// message attributes.
type MessageRequest struct {
	semconv.UnimplementedProcessRequest

	Message *msg.Message

	system      string
	destination string
}

var _ semconv.ProcessRequest = (*MessageRequest)(nil)

// NewMessageRequest returns the request view of m.
func NewMessageRequest(m *msg.Message, system, destination string) *MessageRequest {
	return &MessageRequest{
		Message:     m,
		system:      system,
		destination: destination,
	}
}

func (r *MessageRequest) System() string { return r.system }

func (r *MessageRequest) Destination() (string, bool) {
	return r.destination, r.destination != ""
}

func (r *MessageRequest) DestinationTemplate() (string, bool) { return "", false }

func (r *MessageRequest) TemporaryDestination() bool { return false }

func (r *MessageRequest) AnonymousDestination() bool { return false }

func (r *MessageRequest) ConversationID() (string, bool) {
	return r.attribute(ConversationIDAttribute)
}

func (r *MessageRequest) MessageID() (string, bool) {
	return r.attribute(MessageIDAttribute)
}

func (r *MessageRequest) ClientID() (string, bool) {
	return r.attribute(ClientIDAttribute)
}

func (r *MessageRequest) DestinationPartitionID() (string, bool) {
	return r.attribute(PartitionIDAttribute)
}

// MessageBodySize reports the Content-Length attribute. The body itself
// is a stream and is never read to measure it.
func (r *MessageRequest) MessageBodySize() (int64, bool) {
	v, ok := r.attribute(ContentLengthAttribute)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (r *MessageRequest) MessageEnvelopeSize() (int64, bool) { return 0, false }

func (r *MessageRequest) MessageHeader(name string) []string {
	if r.Message == nil {
		return []string{}
	}
	return r.Message.Attributes.Values(name)
}

func (r *MessageRequest) attribute(key string) (string, bool) {
	if r.Message == nil {
		return "", false
	}
	v := r.Message.Attributes.Get(key)
	return v, v != ""
}
