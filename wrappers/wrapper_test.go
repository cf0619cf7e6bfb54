package wrappers_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerofox-oss/go-msg-wrappers/wrappers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type boomError struct{ reason string }

func (e *boomError) Error() string { return "BOOM: " + e.reason }

func TestProcess_CompletesNamedSpanWithExtractorAttributes(t *testing.T) {
	sr, opts := newRecorder(t)

	ext := wrappers.ExtractorFuncs[*request]{
		Start: func(attrs *wrappers.AttributesBuilder, _ context.Context, _ *request) {
			attrs.Put(attribute.String("messaging.system", "kafka"))
		},
	}
	w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{ext}, opts...)

	err := w.Process(context.Background(), &request{destination: "orders"}, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	require.Len(t, sr.Started(), 1)
	spans := sr.Ended()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "process orders", span.Name())
	assert.Equal(t, trace.SpanKindConsumer, span.SpanKind())
	assert.Equal(t, codes.Unset, span.Status().Code)
	assert.Empty(t, span.Events())

	v, ok := attributeValue(span.Attributes(), "messaging.system")
	require.True(t, ok, "messaging.system attribute missing")
	assert.Equal(t, "kafka", v.AsString())
}

func TestProcess_UnknownDestination(t *testing.T) {
	sr, opts := newRecorder(t)
	w := wrappers.New[*request](headerGetter{}, nil, opts...)

	err := w.Process(context.Background(), &request{system: "sqs"}, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "process unknown", sr.Ended()[0].Name())
}

func TestSpanName(t *testing.T) {
	tests := []struct {
		destination string
		want        string
	}{
		{destination: "orders", want: "process orders"},
		{destination: "queue/with spaces", want: "process queue/with spaces"},
		{destination: "", want: "process unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := wrappers.SpanName(&request{destination: tt.destination}); got != tt.want {
				t.Errorf("SpanName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcess_ReturnsWorkErrorUnchanged(t *testing.T) {
	sr, opts := newRecorder(t)
	rec := &recordingExtractor{name: "rec", log: &callLog{}}
	w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{rec}, opts...)

	boom := &boomError{reason: "disk full"}
	err := w.Process(context.Background(), &request{destination: "orders"}, func(context.Context) error {
		return boom
	})

	// identity, not just equality
	if err != boom {
		t.Fatalf("expected the work error to be returned as is, got %#v", err)
	}

	require.Len(t, sr.Ended(), 1)
	span := sr.Ended()[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "BOOM: disk full", span.Status().Description)
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "exception", span.Events()[0].Name)

	require.Len(t, rec.errs, 1)
	assert.Same(t, boom, rec.errs[0])
}

func TestProcess_RootSpanWithoutContextHeaders(t *testing.T) {
	sr, opts := newRecorder(t)
	w := wrappers.New[*request](headerGetter{}, nil, opts...)

	req := &request{
		destination: "orders",
		headers:     map[string][]string{"content-type": {"application/json"}},
	}
	err := w.Process(context.Background(), req, func(context.Context) error { return nil })
	require.NoError(t, err)

	require.Len(t, sr.Ended(), 1)
	span := sr.Ended()[0]
	assert.False(t, span.Parent().IsValid(), "expected a root span")
	assert.True(t, span.SpanContext().IsValid())
}

func TestProcess_MalformedContextHeadersFallBackToRoot(t *testing.T) {
	sr, opts := newRecorder(t)
	w := wrappers.New[*request](headerGetter{}, nil, opts...)

	req := &request{
		destination: "orders",
		headers:     map[string][]string{"traceparent": {"not-a-traceparent"}},
	}
	err := w.Process(context.Background(), req, func(context.Context) error { return nil })
	require.NoError(t, err)

	require.Len(t, sr.Ended(), 1)
	assert.False(t, sr.Ended()[0].Parent().IsValid())
}

func TestProcess_ExtractsRemoteParentAndBaggage(t *testing.T) {
	sr, opts := newRecorder(t)
	w := wrappers.New[*request](headerGetter{}, nil, opts...)

	req := &request{
		destination: "orders",
		headers: map[string][]string{
			"traceparent": {traceparent},
			"baggage":     {"tenant=acme"},
		},
	}

	var tenant string
	var inner trace.SpanContext
	err := w.Process(context.Background(), req, func(ctx context.Context) error {
		tenant = baggage.FromContext(ctx).Member("tenant").Value()
		inner = trace.SpanContextFromContext(ctx)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, sr.Ended(), 1)
	span := sr.Ended()[0]
	assert.Equal(t, parentTraceID, span.SpanContext().TraceID().String())
	assert.Equal(t, parentSpanID, span.Parent().SpanID().String())
	assert.True(t, span.Parent().IsRemote())

	assert.Equal(t, "acme", tenant)
	assert.Equal(t, span.SpanContext(), inner, "work context should carry the process span")
}

func TestProcess_NilGetterSkipsPropagation(t *testing.T) {
	sr, opts := newRecorder(t)
	w := wrappers.New[*request](nil, nil, opts...)

	req := &request{
		destination: "orders",
		headers:     map[string][]string{"traceparent": {traceparent}},
	}
	err := w.Process(context.Background(), req, func(context.Context) error { return nil })
	require.NoError(t, err)

	require.Len(t, sr.Ended(), 1)
	assert.False(t, sr.Ended()[0].Parent().IsValid())
}

func TestProcess_SpanDoesNotLeakIntoCallerContext(t *testing.T) {
	_, opts := newRecorder(t)
	w := wrappers.New[*request](headerGetter{}, nil, opts...)

	ctx := context.Background()
	err := w.Process(ctx, &request{destination: "orders"}, func(inner context.Context) error {
		if !trace.SpanContextFromContext(inner).IsValid() {
			t.Error("expected a span in the work context")
		}
		return nil
	})
	require.NoError(t, err)

	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())
}

func TestProcess_ExtractorHooksRunInConfiguredOrder(t *testing.T) {
	sr, opts := newRecorder(t)

	log := &callLog{}
	extractors := []wrappers.AttributesExtractor[*request]{
		&recordingExtractor{name: "c", log: log},
		&recordingExtractor{name: "a", log: log},
		&recordingExtractor{name: "b", log: log},
	}
	w := wrappers.New[*request](headerGetter{}, extractors, opts...)

	err := w.Process(context.Background(), &request{destination: "orders"}, func(context.Context) error {
		log.add("work")
		return nil
	})
	require.NoError(t, err)
	require.Len(t, sr.Ended(), 1)

	want := []string{"c.start", "a.start", "b.start", "work", "c.end", "a.end", "b.end"}
	if diff := cmp.Diff(want, log.get()); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestProcess_LaterExtractorsOverwriteEarlierOnes(t *testing.T) {
	sr, opts := newRecorder(t)

	log := &callLog{}
	extractors := []wrappers.AttributesExtractor[*request]{
		&recordingExtractor{name: "first", log: log, start: []attribute.KeyValue{
			attribute.String("owner", "first"),
			attribute.Int("first.only", 1),
		}},
		&recordingExtractor{name: "second", log: log, start: []attribute.KeyValue{
			attribute.String("owner", "second"),
		}},
	}
	w := wrappers.New[*request](headerGetter{}, extractors, opts...)

	require.NoError(t, w.Process(context.Background(), &request{}, func(context.Context) error { return nil }))
	require.Len(t, sr.Ended(), 1)

	attrs := sr.Ended()[0].Attributes()
	owner, _ := attributeValue(attrs, "owner")
	assert.Equal(t, "second", owner.AsString())
	firstOnly, _ := attributeValue(attrs, "first.only")
	assert.Equal(t, int64(1), firstOnly.AsInt64())
}

func TestProcess_EndAttributesAreRecorded(t *testing.T) {
	sr, opts := newRecorder(t)

	rec := &recordingExtractor{name: "rec", log: &callLog{}, end: []attribute.KeyValue{
		attribute.String("outcome", "handled"),
	}}
	w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{rec}, opts...)

	require.NoError(t, w.Process(context.Background(), &request{}, func(context.Context) error { return nil }))
	require.Len(t, sr.Ended(), 1)

	v, ok := attributeValue(sr.Ended()[0].Attributes(), "outcome")
	require.True(t, ok)
	assert.Equal(t, "handled", v.AsString())
	assert.Equal(t, []error{nil}, rec.errs)
}

func TestProcess_PanicEndsSpanAndRepanics(t *testing.T) {
	sr, opts := newRecorder(t)
	rec := &recordingExtractor{name: "rec", log: &callLog{}}
	w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{rec}, opts...)

	assert.PanicsWithValue(t, "AHHH", func() {
		w.Process(context.Background(), &request{destination: "orders"}, func(context.Context) error {
			panic("AHHH")
		})
	})

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)

	require.Len(t, rec.errs, 1)
	var perr *wrappers.PanicError
	require.ErrorAs(t, rec.errs[0], &perr)
	assert.Equal(t, "AHHH", perr.Value)
}

func TestProcess_GoexitEndsSpanAsError(t *testing.T) {
	sr, opts := newRecorder(t)
	rec := &recordingExtractor{name: "rec", log: &callLog{}}
	w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{rec}, opts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Process(context.Background(), &request{destination: "orders"}, func(context.Context) error {
			runtime.Goexit()
			return nil
		})
	}()
	<-done

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)
	assert.Equal(t, wrappers.ErrWorkAborted.Error(), sr.Ended()[0].Status().Description)
	assert.Equal(t, []error{wrappers.ErrWorkAborted}, rec.errs)
}

func TestPanicError_Unwrap(t *testing.T) {
	boom := errors.New("boom")
	err := fmt.Errorf("handler: %w", &wrappers.PanicError{Value: boom})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, (&wrappers.PanicError{Value: 42}).Unwrap())
}

func TestProcess_ExtractorPanicAbortsSpan(t *testing.T) {
	t.Run("start", func(t *testing.T) {
		sr, opts := newRecorder(t)
		faulty := wrappers.ExtractorFuncs[*request]{
			Start: func(*wrappers.AttributesBuilder, context.Context, *request) { panic("bad extractor") },
		}
		w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{faulty}, opts...)

		ran := false
		assert.PanicsWithValue(t, "bad extractor", func() {
			w.Process(context.Background(), &request{}, func(context.Context) error {
				ran = true
				return nil
			})
		})
		assert.False(t, ran, "work must not run")
		assert.Empty(t, sr.Started())
	})

	t.Run("end", func(t *testing.T) {
		sr, opts := newRecorder(t)
		faulty := wrappers.ExtractorFuncs[*request]{
			End: func(*wrappers.AttributesBuilder, context.Context, *request, error) { panic("bad extractor") },
		}
		w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{faulty}, opts...)

		assert.PanicsWithValue(t, "bad extractor", func() {
			w.Process(context.Background(), &request{}, func(context.Context) error { return nil })
		})
		assert.Len(t, sr.Started(), 1)
		assert.Empty(t, sr.Ended())
	})
}

func TestProcess_IsolatedExtractorsCompleteSpan(t *testing.T) {
	sr, opts := newRecorder(t)

	faulty := wrappers.ExtractorFuncs[*request]{
		Start: func(*wrappers.AttributesBuilder, context.Context, *request) { panic("bad start") },
		End:   func(*wrappers.AttributesBuilder, context.Context, *request, error) { panic("bad end") },
	}
	log := &callLog{}
	healthy := &recordingExtractor{name: "healthy", log: log, start: []attribute.KeyValue{
		attribute.Bool("healthy", true),
	}}

	opts = append(opts, wrappers.WithIsolatedExtractors(), wrappers.WithLogger(testr.New(t)))
	w := wrappers.New[*request](headerGetter{}, []wrappers.AttributesExtractor[*request]{faulty, healthy}, opts...)

	err := w.Process(context.Background(), &request{destination: "orders"}, func(context.Context) error { return nil })
	require.NoError(t, err)

	require.Len(t, sr.Ended(), 1)
	v, ok := attributeValue(sr.Ended()[0].Attributes(), "healthy")
	require.True(t, ok)
	assert.True(t, v.AsBool())
	assert.Equal(t, []string{"healthy.start", "healthy.end"}, log.get())
}

func TestProcessValue(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sr, opts := newRecorder(t)
		w := wrappers.New[*request](headerGetter{}, nil, opts...)

		v, err := wrappers.ProcessValue(context.Background(), w, &request{destination: "orders"}, func(context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Len(t, sr.Ended(), 1)
	})

	t.Run("failure", func(t *testing.T) {
		sr, opts := newRecorder(t)
		w := wrappers.New[*request](headerGetter{}, nil, opts...)

		boom := errors.New("BOOM")
		v, err := wrappers.ProcessValue(context.Background(), w, &request{destination: "orders"}, func(context.Context) (string, error) {
			return "partial", boom
		})
		assert.Same(t, boom, err)
		assert.Equal(t, "", v)
		require.Len(t, sr.Ended(), 1)
		assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)
	})
}

func TestProcess_ConcurrentCallsKeepTheirOwnParents(t *testing.T) {
	sr, opts := newRecorder(t)
	w := wrappers.New[*request](headerGetter{}, nil, opts...)

	const calls = 50
	g := errgroup.Group{}
	for i := 0; i < calls; i++ {
		i := i
		g.Go(func() error {
			traceID := fmt.Sprintf("%032x", i+1)
			req := &request{
				destination: fmt.Sprintf("queue-%d", i),
				headers: map[string][]string{
					"traceparent": {"00-" + traceID + "-" + parentSpanID + "-01"},
				},
			}
			return w.Process(context.Background(), req, func(ctx context.Context) error {
				if got := trace.SpanContextFromContext(ctx).TraceID().String(); got != traceID {
					return fmt.Errorf("call %d saw trace %s", i, got)
				}
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())

	spans := sr.Ended()
	require.Len(t, spans, calls)
	for _, s := range spans {
		var i int
		_, err := fmt.Sscanf(s.Name(), "process queue-%d", &i)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%032x", i+1), s.SpanContext().TraceID().String())
	}
}
