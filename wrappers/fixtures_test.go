package wrappers_test

import (
	"context"
	"sync"
	"testing"

	"github.com/zerofox-oss/go-msg-wrappers/wrappers"
	"github.com/zerofox-oss/go-msg-wrappers/wrappers/semconv"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	parentTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	parentSpanID  = "00f067aa0ba902b7"
	traceparent   = "00-" + parentTraceID + "-" + parentSpanID + "-01"
)

// request is a ProcessRequest backed by plain fields. Empty strings and
// negative sizes are reported as absent.
type request struct {
	semconv.UnimplementedProcessRequest

	system         string
	destination    string
	template       string
	temporary      bool
	anonymous      bool
	conversationID string
	messageID      string
	bodySize       int64
	headers        map[string][]string
}

func (r *request) System() string                      { return r.system }
func (r *request) Destination() (string, bool)         { return r.destination, r.destination != "" }
func (r *request) DestinationTemplate() (string, bool) { return r.template, r.template != "" }
func (r *request) TemporaryDestination() bool          { return r.temporary }
func (r *request) AnonymousDestination() bool          { return r.anonymous }
func (r *request) ConversationID() (string, bool)      { return r.conversationID, r.conversationID != "" }
func (r *request) MessageID() (string, bool)           { return r.messageID, r.messageID != "" }
func (r *request) MessageBodySize() (int64, bool)      { return r.bodySize, r.bodySize > 0 }
func (r *request) MessageEnvelopeSize() (int64, bool)  { return 0, false }

func (r *request) MessageHeader(name string) []string {
	vv, ok := r.headers[name]
	if !ok {
		return []string{}
	}
	return vv
}

// headerGetter reads request headers for propagation.
type headerGetter struct{}

func (headerGetter) Keys(r *request) []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.headers))
	for k := range r.headers {
		keys = append(keys, k)
	}
	return keys
}

func (headerGetter) Get(r *request, key string) (string, bool) {
	if r == nil || len(r.headers[key]) == 0 {
		return "", false
	}
	return r.headers[key][0], true
}

// recordingExtractor appends "<name>.start" and "<name>.end" to a shared
// log and remembers the errors handed to OnEnd.
type recordingExtractor struct {
	name  string
	log   *callLog
	start []attribute.KeyValue
	end   []attribute.KeyValue

	errs []error
}

func (e *recordingExtractor) OnStart(attrs *wrappers.AttributesBuilder, _ context.Context, _ *request) {
	e.log.add(e.name + ".start")
	attrs.Put(e.start...)
}

func (e *recordingExtractor) OnEnd(attrs *wrappers.AttributesBuilder, _ context.Context, _ *request, err error) {
	e.log.add(e.name + ".end")
	e.errs = append(e.errs, err)
	attrs.Put(e.end...)
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// newRecorder returns a SpanRecorder and options wiring a TracerProvider
// that reports to it, along with a W3C tracecontext + baggage propagator.
func newRecorder(t *testing.T) (*tracetest.SpanRecorder, []wrappers.Option) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		tp.Shutdown(context.Background())
	})

	return sr, []wrappers.Option{
		wrappers.WithTracerProvider(tp),
		wrappers.WithPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)),
	}
}

func attributeValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}
