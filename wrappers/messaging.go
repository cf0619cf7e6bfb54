package wrappers

import (
	"context"
	"fmt"

	"github.com/zerofox-oss/go-msg-wrappers/wrappers/semconv"
)

// MessagingAttributesExtractor records the messaging semantic convention
// attributes of a ProcessRequest.
type MessagingAttributesExtractor[R semconv.ProcessRequest] struct {
	capturedHeaders []string
}

// NewMessagingAttributesExtractor returns an extractor which also records
// the values of the named message headers as messaging.header.* attributes.
func NewMessagingAttributesExtractor[R semconv.ProcessRequest](capturedHeaders ...string) *MessagingAttributesExtractor[R] {
	return &MessagingAttributesExtractor[R]{
		capturedHeaders: append([]string(nil), capturedHeaders...),
	}
}

func (e *MessagingAttributesExtractor[R]) OnStart(attrs *AttributesBuilder, _ context.Context, request R) {
	attrs.Put(semconv.MessagingOperationKey.String(semconv.OperationProcess))

	if system := request.System(); system != "" {
		attrs.Put(semconv.MessagingSystemKey.String(system))
	}

	if request.TemporaryDestination() {
		attrs.Put(
			semconv.MessagingDestinationTemporaryKey.Bool(true),
			semconv.MessagingDestinationNameKey.String(semconv.TemporaryDestinationName),
		)
	} else {
		if name, ok := request.Destination(); ok {
			attrs.Put(semconv.MessagingDestinationNameKey.String(name))
		}
		if template, ok := request.DestinationTemplate(); ok {
			attrs.Put(semconv.MessagingDestinationTemplateKey.String(template))
		}
	}

	if request.AnonymousDestination() {
		attrs.Put(semconv.MessagingDestinationAnonymousKey.Bool(true))
	}
	if id, ok := request.ConversationID(); ok {
		attrs.Put(semconv.MessagingMessageConversationIDKey.String(id))
	}
	if size, ok := request.MessageBodySize(); ok {
		attrs.Put(semconv.MessagingMessageBodySizeKey.Int64(size))
	}
	if size, ok := request.MessageEnvelopeSize(); ok {
		attrs.Put(semconv.MessagingMessageEnvelopeSizeKey.Int64(size))
	}
	if id, ok := request.ClientID(); ok {
		attrs.Put(semconv.MessagingClientIDKey.String(id))
	}
	if count, ok := request.BatchMessageCount(); ok {
		attrs.Put(semconv.MessagingBatchMessageCountKey.Int64(count))
	}
	if id, ok := request.DestinationPartitionID(); ok {
		attrs.Put(semconv.MessagingDestinationPartitionIDKey.String(id))
	}

	for _, name := range e.capturedHeaders {
		if values := request.MessageHeader(name); len(values) > 0 {
			attrs.Put(semconv.MessagingHeaderKey(name).StringSlice(values))
		}
	}
}

func (e *MessagingAttributesExtractor[R]) OnEnd(attrs *AttributesBuilder, _ context.Context, request R, err error) {
	if id, ok := request.MessageID(); ok {
		attrs.Put(semconv.MessagingMessageIDKey.String(id))
	}
	if err != nil {
		attrs.Put(semconv.ErrorTypeKey.String(errorType(err)))
	}
}

// errorType classifies err by its dynamic type. Panics are reported as
// the type of the panic value.
func errorType(err error) string {
	if p, ok := err.(*PanicError); ok {
		return fmt.Sprintf("%T", p.Value)
	}
	return fmt.Sprintf("%T", err)
}
