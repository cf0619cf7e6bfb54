// Package semconv holds the messaging vocabulary shared by the process
// wrapper and its extractors: the request view of a message and the span
// attribute keys used to describe it.
package semconv

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys following the OpenTelemetry messaging semantic conventions.
const (
	MessagingSystemKey                 = attribute.Key("messaging.system")
	MessagingOperationKey              = attribute.Key("messaging.operation")
	MessagingDestinationNameKey        = attribute.Key("messaging.destination.name")
	MessagingDestinationTemplateKey    = attribute.Key("messaging.destination.template")
	MessagingDestinationTemporaryKey   = attribute.Key("messaging.destination.temporary")
	MessagingDestinationAnonymousKey   = attribute.Key("messaging.destination.anonymous")
	MessagingDestinationPartitionIDKey = attribute.Key("messaging.destination.partition.id")
	MessagingMessageConversationIDKey  = attribute.Key("messaging.message.conversation_id")
	MessagingMessageIDKey              = attribute.Key("messaging.message.id")
	MessagingMessageBodySizeKey        = attribute.Key("messaging.message.body.size")
	MessagingMessageEnvelopeSizeKey    = attribute.Key("messaging.message.envelope.size")
	MessagingClientIDKey               = attribute.Key("messaging.client_id")
	MessagingBatchMessageCountKey      = attribute.Key("messaging.batch.message_count")

	ErrorTypeKey = attribute.Key("error.type")
)

// Operation names.
const (
	OperationProcess = "process"
	OperationPublish = "publish"
)

// TemporaryDestinationName replaces the destination name of temporary
// destinations, whose names are not meaningful across messages.
const TemporaryDestinationName = "(temporary)"

// MessagingHeaderKey returns the attribute key used to capture the
// message header name. The name is lower-cased and dashes become
// underscores: "Content-Type" is recorded as messaging.header.content_type.
func MessagingHeaderKey(name string) attribute.Key {
	n := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	return attribute.Key("messaging.header." + n)
}
