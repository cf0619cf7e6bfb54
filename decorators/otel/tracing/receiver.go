package tracing

import (
	"context"

	msg "github.com/zerofox-oss/go-msg-wrappers"
	"github.com/zerofox-oss/go-msg-wrappers/wrappers"
)

// Receiver Wraps another msg.Receiver, populating
// the context with any upstream tracing information.
//
// Each message is processed inside a consumer span named
// "process <destination>", a child of the span context found in the
// message attributes. The error returned by next is returned unchanged.
func Receiver(next msg.Receiver, opts ...Option) msg.Receiver {
	options := newOptions(opts)

	extractors := make([]wrappers.AttributesExtractor[*MessageRequest], 0, len(options.Extractors)+1)
	extractors = append(extractors, wrappers.NewMessagingAttributesExtractor[*MessageRequest](options.CapturedHeaders...))
	extractors = append(extractors, options.Extractors...)

	wrapperOpts := []wrappers.Option{
		wrappers.WithTracerProvider(options.TracerProvider),
		wrappers.WithPropagator(options.propagator()),
	}
	wrapperOpts = append(wrapperOpts, options.WrapperOptions...)

	w := wrappers.New[*MessageRequest](attributesGetter{}, extractors, wrapperOpts...)

	return msg.ReceiverFunc(func(ctx context.Context, m *msg.Message) error {
		req := NewMessageRequest(m, options.System, options.Destination)
		return w.Process(ctx, req, func(ctx context.Context) error {
			return next.Receive(ctx, m)
		})
	})
}
