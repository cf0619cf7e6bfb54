package wrappers

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
	SpanKind       trace.SpanKind
	Logger         logr.Logger

	// IsolateExtractors recovers panics raised by individual extractors
	// so the span is still completed.
	IsolateExtractors bool
}

type Option func(*Options)

// WithTracerProvider sets the provider the wrapper gets its tracer from.
// Defaults to otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithPropagator sets the propagator used to extract the parent context
// from request headers. Defaults to otel.GetTextMapPropagator().
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *Options) {
		o.Propagator = p
	}
}

// WithSpanKind sets the kind of the process span. Defaults to
// trace.SpanKindConsumer.
func WithSpanKind(kind trace.SpanKind) Option {
	return func(o *Options) {
		o.SpanKind = kind
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithIsolatedExtractors makes the wrapper recover and log a panic raised
// by an extractor instead of letting it abort the span.
func WithIsolatedExtractors() Option {
	return func(o *Options) {
		o.IsolateExtractors = true
	}
}

func defaultOptions() *Options {
	return &Options{
		TracerProvider: otel.GetTracerProvider(),
		Propagator:     otel.GetTextMapPropagator(),
		SpanKind:       trace.SpanKindConsumer,
		Logger:         stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("wrappers"),
	}
}
