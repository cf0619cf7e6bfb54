// Package wrappers traces the processing of inbound messages.
//
// A ProcessWrapper is built once, typically per destination, from a header
// getter and an ordered list of attribute extractors:
//
//	w := wrappers.NewDefault(wrappers.RequestHeaderGetter[*OrderMessage](), nil)
//
//	err := w.Process(ctx, req, func(ctx context.Context) error {
//		// ctx carries the "process orders" span
//		return handle(ctx, req)
//	})
//
// The wrapper extracts the trace context propagated in the message
// headers, starts a consumer span as its child, runs the work and ends the
// span exactly once. The error returned by the work reaches the caller
// unchanged. Use ProcessValue when the work produces a value.
package wrappers
