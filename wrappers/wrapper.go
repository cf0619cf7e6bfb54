package wrappers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/zerofox-oss/go-msg-wrappers/wrappers/semconv"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/zerofox-oss/go-msg-wrappers/wrappers"
	instrumentationVersion = "1.0.0"

	unknownDestination = "unknown"
)

// ErrWorkAborted is passed to extractors and recorded on the span when the
// wrapped work stops its goroutine, with runtime.Goexit, without returning.
var ErrWorkAborted = errors.New("wrappers: work exited without returning")

// PanicError is passed to extractors and recorded on the span when the
// wrapped work panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("wrappers: panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// ProcessWrapper traces the processing of inbound messages.
//
// Each call extracts the propagated context from the request headers,
// starts a span named "process <destination>" as its child, runs the work
// with a context carrying the span and ends the span once, whatever the
// outcome. A ProcessWrapper holds no per-call state and is safe for
// concurrent use.
type ProcessWrapper[R semconv.ProcessRequest] struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	getter     HeaderGetter[R]
	extractors []AttributesExtractor[R]
	spanKind   trace.SpanKind
	logger     logr.Logger
	isolate    bool
}

// New returns a ProcessWrapper running extractors in the given order.
// A nil getter disables context propagation: spans are children of the
// context passed to Process.
func New[R semconv.ProcessRequest](getter HeaderGetter[R], extractors []AttributesExtractor[R], opts ...Option) *ProcessWrapper[R] {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &ProcessWrapper[R]{
		tracer: options.TracerProvider.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: options.Propagator,
		getter:     getter,
		extractors: append([]AttributesExtractor[R](nil), extractors...),
		spanKind:   options.SpanKind,
		logger:     options.Logger,
		isolate:    options.IsolateExtractors,
	}
}

// NewDefault is like New but runs a MessagingAttributesExtractor before
// the given extractors.
func NewDefault[R semconv.ProcessRequest](getter HeaderGetter[R], extractors []AttributesExtractor[R], opts ...Option) *ProcessWrapper[R] {
	all := make([]AttributesExtractor[R], 0, len(extractors)+1)
	all = append(all, NewMessagingAttributesExtractor[R]())
	all = append(all, extractors...)
	return New(getter, all, opts...)
}

// Process runs work inside a process span for request.
//
// The error returned by work is returned as is. If work panics the span is
// ended with a *PanicError and the panic continues with its original value.
// If work ends the goroutine without returning, as t.FailNow does, the span
// is ended with ErrWorkAborted.
func (w *ProcessWrapper[R]) Process(ctx context.Context, request R, work func(context.Context) error) (err error) {
	ctx, span := w.start(ctx, request)
	completed := false
	defer func() {
		if r := recover(); r != nil {
			w.end(ctx, span, request, &PanicError{Value: r})
			panic(r)
		}
		if !completed {
			w.end(ctx, span, request, ErrWorkAborted)
			return
		}
		w.end(ctx, span, request, err)
	}()

	err = work(ctx)
	completed = true
	return err
}

// ProcessValue is Process for work that produces a value. On failure the
// zero value is returned together with the error work returned.
func ProcessValue[R semconv.ProcessRequest, T any](ctx context.Context, w *ProcessWrapper[R], request R, work func(context.Context) (T, error)) (T, error) {
	var v T
	err := w.Process(ctx, request, func(ctx context.Context) error {
		var err error
		v, err = work(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// SpanName returns the name of the process span for request.
func SpanName(request semconv.ProcessRequest) string {
	destination, ok := request.Destination()
	if !ok {
		destination = unknownDestination
	}
	return semconv.OperationProcess + " " + destination
}

func (w *ProcessWrapper[R]) start(ctx context.Context, request R) (context.Context, trace.Span) {
	parent := ctx
	if w.getter != nil {
		parent = w.propagator.Extract(ctx, headerCarrier[R]{getter: w.getter, request: request})
	}

	var attrs AttributesBuilder
	for _, e := range w.extractors {
		w.onStart(e, &attrs, parent, request)
	}

	return w.tracer.Start(parent, SpanName(request),
		trace.WithSpanKind(w.spanKind),
		trace.WithAttributes(attrs.Build()...),
	)
}

func (w *ProcessWrapper[R]) end(ctx context.Context, span trace.Span, request R, err error) {
	var attrs AttributesBuilder
	for _, e := range w.extractors {
		w.onEnd(e, &attrs, ctx, request, err)
	}
	span.SetAttributes(attrs.Build()...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (w *ProcessWrapper[R]) onStart(e AttributesExtractor[R], attrs *AttributesBuilder, parent context.Context, request R) {
	if w.isolate {
		defer w.recoverExtractor("start", e)
	}
	e.OnStart(attrs, parent, request)
}

func (w *ProcessWrapper[R]) onEnd(e AttributesExtractor[R], attrs *AttributesBuilder, ctx context.Context, request R, err error) {
	if w.isolate {
		defer w.recoverExtractor("end", e)
	}
	e.OnEnd(attrs, ctx, request, err)
}

func (w *ProcessWrapper[R]) recoverExtractor(hook string, e AttributesExtractor[R]) {
	if r := recover(); r != nil {
		w.logger.Error(&PanicError{Value: r}, "attributes extractor panicked",
			"hook", hook,
			"extractor", fmt.Sprintf("%T", e),
		)
	}
}
