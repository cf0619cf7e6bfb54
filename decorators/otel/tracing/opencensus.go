package tracing

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	octrace "go.opencensus.io/trace"
	ocprop "go.opencensus.io/trace/propagation"
	"go.opencensus.io/trace/tracestate"
	ocbridge "go.opentelemetry.io/otel/bridge/opencensus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceContextKey = "Tracecontext"
	traceStateKey   = "Tracestate"
)

// OpenCensusBinary propagates span context in the legacy OpenCensus
// format used by older go-msg publishers: the binary span context,
// base64-encoded, in the Tracecontext attribute and the W3C tracestate
// in the Tracestate attribute.
type OpenCensusBinary struct {
	// Logger receives V(1) messages about undecodable headers.
	// The zero value discards them.
	Logger logr.Logger
}

var _ propagation.TextMapPropagator = OpenCensusBinary{}

// Inject writes the span context found in ctx, if valid, to carrier.
func (p OpenCensusBinary) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}

	ocsc := ocbridge.OTelSpanContextToOC(sc)
	carrier.Set(traceContextKey, base64.StdEncoding.EncodeToString(ocprop.Binary(ocsc)))

	if ts := tracestateToString(sc.TraceState().String(), ocsc); ts != "" {
		carrier.Set(traceStateKey, ts)
	}
}

// Extract returns ctx with the remote span context read from carrier.
// ctx is returned unchanged when the headers are absent or invalid.
func (p OpenCensusBinary) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	traceContextB64 := carrier.Get(traceContextKey)
	if traceContextB64 == "" {
		return ctx
	}

	traceContext, err := base64.StdEncoding.DecodeString(traceContextB64)
	if err != nil {
		p.Logger.V(1).Info("ignoring undecodable trace context", "error", err.Error())
		return ctx
	}

	spanContext, ok := ocprop.FromBinary(traceContext)
	if !ok {
		p.Logger.V(1).Info("ignoring malformed binary trace context")
		return ctx
	}

	if traceStateString := carrier.Get(traceStateKey); traceStateString != "" {
		spanContext.Tracestate = tracestateFromString(traceStateString)
	}

	otelSpanContext := ocbridge.OCSpanContextToOTel(spanContext)
	if !otelSpanContext.IsValid() {
		return ctx
	}
	if spanContext.Tracestate != nil {
		if ts, err := trace.ParseTraceState(tracestateToString("", spanContext)); err == nil {
			otelSpanContext = otelSpanContext.WithTraceState(ts)
		}
	}

	return trace.ContextWithRemoteSpanContext(ctx, otelSpanContext)
}

// Fields returns the attribute keys this propagator reads and writes.
func (p OpenCensusBinary) Fields() []string {
	return []string{traceContextKey, traceStateKey}
}

// CODE BASED ON:
// https://github.com/census-instrumentation/opencensus-go/blob/ \
// master/plugin/ochttp/propagation/tracecontext/propagation.go

const (
	trimOWSRegexFmt  = `^[\x09\x20]*(.*[^\x20\x09])[\x09\x20]*$`
	maxTracestateLen = 512
)

var trimOWSRegExp = regexp.MustCompile(trimOWSRegexFmt) // nolint

// tracestateToString serializes the tracestate of sc, falling back to
// otelState when sc carries none.
func tracestateToString(otelState string, sc octrace.SpanContext) string {
	if sc.Tracestate == nil {
		return otelState
	}
	entries := sc.Tracestate.Entries()
	if len(entries) == 0 {
		return otelState
	}

	pairs := make([]string, 0, len(entries))
	for _, entry := range entries {
		pairs = append(pairs, entry.Key+"="+entry.Value)
	}
	return strings.Join(pairs, ",")
}

// tracestateFromString parses a W3C tracestate header. It returns nil if
// the header is malformed or too long.
func tracestateFromString(tracestateString string) *tracestate.Tracestate {
	var entries []tracestate.Entry // nolint
	pairs := strings.Split(tracestateString, ",")
	hdrLenWithoutOWS := len(pairs) - 1 // Number of commas
	for _, pair := range pairs {
		matches := trimOWSRegExp.FindStringSubmatch(pair)
		if matches == nil {
			return nil
		}
		pair = matches[1]
		hdrLenWithoutOWS += len(pair)
		if hdrLenWithoutOWS > maxTracestateLen {
			return nil
		}
		kv := strings.Split(pair, "=")
		if len(kv) != 2 {
			return nil
		}
		entries = append(entries, tracestate.Entry{Key: kv[0], Value: kv[1]})
	}
	ts, err := tracestate.New(nil, entries...)
	if err != nil {
		return nil
	}

	return ts
}
