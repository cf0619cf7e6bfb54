package wrappers

import "context"

// AttributesExtractor contributes span attributes for a request.
//
// OnStart is called before the span starts with the context extracted
// from the request headers. OnEnd is called after the work returns with
// the context carrying the span and the error the work returned, if any.
// Process operations have no response, so none is passed.
//
// Extractors run in the order they were configured. A panicking extractor
// is not recovered unless the wrapper was built WithIsolatedExtractors.
type AttributesExtractor[R any] interface {
	OnStart(attrs *AttributesBuilder, parent context.Context, request R)
	OnEnd(attrs *AttributesBuilder, ctx context.Context, request R, err error)
}

// ExtractorFuncs is an adapter to allow the use of ordinary functions as
// an AttributesExtractor. Either function may be nil.
type ExtractorFuncs[R any] struct {
	Start func(attrs *AttributesBuilder, parent context.Context, request R)
	End   func(attrs *AttributesBuilder, ctx context.Context, request R, err error)
}

// OnStart calls f.Start if it is set.
func (f ExtractorFuncs[R]) OnStart(attrs *AttributesBuilder, parent context.Context, request R) {
	if f.Start != nil {
		f.Start(attrs, parent, request)
	}
}

// OnEnd calls f.End if it is set.
func (f ExtractorFuncs[R]) OnEnd(attrs *AttributesBuilder, ctx context.Context, request R, err error) {
	if f.End != nil {
		f.End(attrs, ctx, request, err)
	}
}
