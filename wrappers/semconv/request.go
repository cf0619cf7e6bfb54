package semconv

// ProcessRequest exposes the messaging properties of one inbound message
// to the process wrapper and its attribute extractors.
//
// Optional properties use the comma-ok form: ok is false when the
// underlying message does not carry the value.
type ProcessRequest interface {
	// System identifies the messaging system, e.g. "kafka" or "sqs".
	System() string

	Destination() (string, bool)
	DestinationTemplate() (string, bool)
	TemporaryDestination() bool
	AnonymousDestination() bool

	ConversationID() (string, bool)
	MessageID() (string, bool)
	MessageBodySize() (int64, bool)
	MessageEnvelopeSize() (int64, bool)

	ClientID() (string, bool)
	BatchMessageCount() (int64, bool)
	DestinationPartitionID() (string, bool)

	// MessageHeader returns all values of the header named name, or an
	// empty slice if there were none. Implementations must not return nil.
	MessageHeader(name string) []string
}

// UnimplementedProcessRequest can be embedded by ProcessRequest
// implementations that have no client id, batch count, partition or
// headers to expose.
type UnimplementedProcessRequest struct{}

func (UnimplementedProcessRequest) ClientID() (string, bool) { return "", false }

func (UnimplementedProcessRequest) BatchMessageCount() (int64, bool) { return 0, false }

func (UnimplementedProcessRequest) DestinationPartitionID() (string, bool) { return "", false }

func (UnimplementedProcessRequest) MessageHeader(string) []string { return []string{} }
