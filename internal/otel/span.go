// Package otel holds the span helpers and attribute keys shared by the
// directory stores, the service layer and the freshness synchronizer.
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-server/internal/directory"
)

// Attribute keys for directory spans
const (
	AttrServiceID       = attribute.Key("campuslink.service.id")
	AttrServiceCategory = attribute.Key("campuslink.service.category")
	AttrSearchTerm      = attribute.Key("campuslink.search.present")
	AttrSyncOutcome     = attribute.Key("campuslink.sync.outcome")
	AttrStatusOpen      = attribute.Key("campuslink.status.open")
	AttrLookupResult    = attribute.Key("campuslink.lookup.result")
	AttrResultCount     = attribute.Key("result.count")
)

// Lookup results set on AttrLookupResult
const (
	LookupNotFound  = "not_found"
	LookupInvalidID = "invalid_id"
)

// StartSpan starts a span on tracer. With a nil tracer it returns the span
// already in ctx, which is a no-op span when there is none.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks the span as failed and attaches err as an exception event.
// A missing or malformed service id is the client's mistake: it only sets
// AttrLookupResult and leaves the status unset.
// The status description stays generic so queries and URLs never reach it.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}

	switch {
	case errors.Is(err, directory.ErrNotFound):
		span.SetAttributes(AttrLookupResult.String(LookupNotFound))
	case errors.Is(err, directory.ErrInvalidIdentifier):
		span.SetAttributes(AttrLookupResult.String(LookupInvalidID))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
