// Tracing provides OpenTelemetry decorators which enable distributed tracing
//
// How it works
//
// The topic decorator "tracing.Topic" starts a producer span for every
// MessageWriter and attaches its span context to the outgoing message
// attributes when the writer is closed. If no parent trace exists, it will
// create one automatically.
//
// The receiver decorator "tracing.Receiver" processes every message inside
// a consumer span named "process <destination>", the child of the span
// context found in the message attributes. The context.Context passed to
// your receiver carries that span. Messaging attributes (system,
// destination, message id, ...) are recorded on the span, and a failed
// Receive marks it as an error.
//
// Both decorators speak the W3C tracecontext format through the configured
// propagator. Unless WithOnlyOtel(true) is given they also read and write
// the OpenCensus Tracecontext attribute used by older publishers.
//
// Examples
//
// Using the tracing.Topic:
//
//	topic := tracing.Topic(sqsTopic,
//		tracing.WithSystem("sqs"),
//		tracing.WithDestination("orders"),
//	)
//	// use topic as you would without tracing
//
// Using the tracing.Receiver:
//
//	receiver := msg.ReceiverFunc(func(ctx context.Context, m *msg.Message) error {
//		// ctx carries the "process orders" span
//		return nil
//	})
//	receiver = tracing.Receiver(receiver,
//		tracing.WithSystem("sqs"),
//		tracing.WithDestination("orders"),
//	)
package tracing
