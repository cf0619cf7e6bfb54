package tracing

import (
	"github.com/zerofox-oss/go-msg-wrappers/wrappers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zerofox-oss/go-msg-wrappers/decorators/otel"

type Options struct {
	// System is the messaging system, e.g. "sqs".
	System string
	// Destination is the queue or topic served by the decorator.
	Destination string
	// SpanName overrides the name of the producer span created by Topic.
	// Receiver spans are always named "process <destination>".
	SpanName string
	// OnlyOtel disables the OpenCensus Tracecontext/Tracestate attributes.
	OnlyOtel bool

	TracerProvider  trace.TracerProvider
	Propagator      propagation.TextMapPropagator
	CapturedHeaders []string
	Extractors      []wrappers.AttributesExtractor[*MessageRequest]
	WrapperOptions  []wrappers.Option
}

type Option func(*Options)

func WithSystem(system string) Option {
	return func(o *Options) {
		o.System = system
	}
}

func WithDestination(destination string) Option {
	return func(o *Options) {
		o.Destination = destination
	}
}

func WithSpanName(spanName string) Option {
	return func(o *Options) {
		o.SpanName = spanName
	}
}

func WithOnlyOtel(onlyOtel bool) Option {
	return func(o *Options) {
		o.OnlyOtel = onlyOtel
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithPropagator sets the propagator. Defaults to the global one.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *Options) {
		o.Propagator = p
	}
}

// WithCapturedHeaders records the named message attributes on the span.
func WithCapturedHeaders(names ...string) Option {
	return func(o *Options) {
		o.CapturedHeaders = append(o.CapturedHeaders, names...)
	}
}

// WithAttributesExtractors adds extractors run by Receiver after the
// messaging semantic convention extractor.
func WithAttributesExtractors(extractors ...wrappers.AttributesExtractor[*MessageRequest]) Option {
	return func(o *Options) {
		o.Extractors = append(o.Extractors, extractors...)
	}
}

// WithWrapperOptions passes options through to the process wrapper used
// by Receiver.
func WithWrapperOptions(opts ...wrappers.Option) Option {
	return func(o *Options) {
		o.WrapperOptions = append(o.WrapperOptions, opts...)
	}
}

func newOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.TracerProvider == nil {
		options.TracerProvider = otel.GetTracerProvider()
	}
	if options.Propagator == nil {
		options.Propagator = otel.GetTextMapPropagator()
	}
	return options
}

// propagator returns the configured propagator, combined with the
// OpenCensus one unless OnlyOtel is set. On extraction the configured
// propagator runs last, so its headers take precedence.
func (o *Options) propagator() propagation.TextMapPropagator {
	if o.OnlyOtel {
		return o.Propagator
	}
	return propagation.NewCompositeTextMapPropagator(OpenCensusBinary{}, o.Propagator)
}
