package tracing

import (
	"bytes"
	"context"
	"strconv"
	"sync"

	msg "github.com/zerofox-oss/go-msg-wrappers"
	"github.com/zerofox-oss/go-msg-wrappers/wrappers/semconv"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Topic wraps a msg.Topic, attaching any tracing data
// via msg.Attributes to send downstream.
//
// Every MessageWriter runs inside a producer span, named
// "publish <destination>" unless WithSpanName is given, which ends when
// the writer is closed.
func Topic(next msg.Topic, opts ...Option) msg.Topic {
	options := newOptions(opts)

	tracer := options.TracerProvider.Tracer(instrumentationName)
	propagator := options.propagator()

	spanName := options.SpanName
	if spanName == "" {
		destination := options.Destination
		if destination == "" {
			destination = "unknown"
		}
		spanName = semconv.OperationPublish + " " + destination
	}

	return msg.TopicFunc(func(ctx context.Context) msg.MessageWriter {
		tracingCtx, span := tracer.Start(
			ctx,
			spanName,
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(publishAttributes(options)...),
		)

		return &tracingWriter{
			Next:       next.NewWriter(tracingCtx),
			ctx:        tracingCtx,
			span:       span,
			propagator: propagator,
			options:    options,
		}
	})
}

func publishAttributes(options *Options) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.MessagingOperationKey.String(semconv.OperationPublish),
	}
	if options.System != "" {
		attrs = append(attrs, semconv.MessagingSystemKey.String(options.System))
	}
	if options.Destination != "" {
		attrs = append(attrs, semconv.MessagingDestinationNameKey.String(options.Destination))
	}
	return attrs
}

type tracingWriter struct {
	Next msg.MessageWriter

	buf    bytes.Buffer
	closed bool
	mux    sync.Mutex
	ctx    context.Context

	span       trace.Span
	propagator propagation.TextMapPropagator
	options    *Options
}

// Attributes returns the attributes associated with the MessageWriter.
func (w *tracingWriter) Attributes() *msg.Attributes {
	return w.Next.Attributes()
}

// Close adds tracing message attributes
// writing to the next MessageWriter.
func (w *tracingWriter) Close() error {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return msg.ErrClosedMessageWriter
	}
	w.closed = true
	defer w.span.End()

	dataToWrite := w.buf.Bytes()
	attrs := w.Attributes()

	// record captured attributes as span tags for debugging
	for _, name := range w.options.CapturedHeaders {
		if vv := attrs.Values(name); len(vv) > 0 {
			w.span.SetAttributes(semconv.MessagingHeaderKey(name).StringSlice(vv))
		}
	}
	w.span.SetAttributes(semconv.MessagingMessageBodySizeKey.Int(len(dataToWrite)))
	if id := attrs.Get(MessageIDAttribute); id != "" {
		w.span.SetAttributes(semconv.MessagingMessageIDKey.String(id))
	}

	// the propagator writes the W3C headers and, unless OnlyOtel is
	// set, the OpenCensus ones for backwards compatibility
	w.propagator.Inject(w.ctx, msgAttributesTextCarrier{attributes: attrs})
	attrs.Set(ContentLengthAttribute, strconv.Itoa(len(dataToWrite)))

	if _, err := w.Next.Write(dataToWrite); err != nil {
		w.fail(err)
		return err
	}
	if err := w.Next.Close(); err != nil {
		w.fail(err)
		return err
	}
	return nil
}

func (w *tracingWriter) fail(err error) {
	w.span.RecordError(err)
	w.span.SetStatus(codes.Error, err.Error())
}

// Write writes bytes to an internal buffer.
func (w *tracingWriter) Write(b []byte) (int, error) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return 0, msg.ErrClosedMessageWriter
	}
	return w.buf.Write(b)
}
