package tracing

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	msg "github.com/zerofox-oss/go-msg-wrappers"
	octrace "go.opencensus.io/trace"
	ocprop "go.opencensus.io/trace/propagation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	otelTraceID   = "4bf92f3577b34da6a3ce929d0e0e4736"
	otelSpanID    = "00f067aa0ba902b7"
	traceparent   = "00-" + otelTraceID + "-" + otelSpanID + "-01"
	ocTraceID     = "0102030405060708090a0b0c0d0e0f10"
	ocSpanIDValue = "0102030405060708"
)

// newRecorder returns a span recorder and the options routing the
// decorators' spans to it. The propagator is W3C tracecontext.
func newRecorder(t *testing.T) (*tracetest.SpanRecorder, []Option) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(sr))
	t.Cleanup(func() {
		tp.Shutdown(context.Background())
	})

	return sr, []Option{
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
	}
}

// ocTracecontext returns the base64 OpenCensus binary form of a sampled
// span context with ids ocTraceID and ocSpanIDValue.
func ocTracecontext() string {
	sc := octrace.SpanContext{
		TraceID:      octrace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:       octrace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceOptions: 1,
	}
	return base64.StdEncoding.EncodeToString(ocprop.Binary(sc))
}

func attributeValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

var errPublish = errors.New("publish failed")

// failingTopic returns writers whose Close fails with errPublish.
type failingTopic struct{}

func (failingTopic) NewWriter(context.Context) msg.MessageWriter {
	return &failingWriter{attributes: msg.Attributes{}}
}

type failingWriter struct {
	attributes msg.Attributes
}

func (w *failingWriter) Attributes() *msg.Attributes { return &w.attributes }
func (w *failingWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *failingWriter) Close() error                { return errPublish }
