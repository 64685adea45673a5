// Copyright © 2021 The Lust authors

package profiler

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZekeMedley/lust/lust"
)

// tracerName identifies this package to the tracer provider.
const tracerName = "lust"

var _ lust.Profiler = &OtelAnnotator{}

// OtelAnnotator opens an OpenTelemetry span for every compilation stage.
// Stages nest: a stage started while another is open becomes its child.
type OtelAnnotator struct {
	config
	currentContext context.Context
}

// NewOpenTelemetryAnnotator builds an annotator attaching spans under
// parentContext. Spans go to the globally registered tracer provider.
func NewOpenTelemetryAnnotator(parentContext context.Context, opts ...Option) *OtelAnnotator {
	if parentContext == nil {
		parentContext = context.Background()
	}
	p := &OtelAnnotator{currentContext: parentContext}
	p.config.apply(opts)
	return p
}

// Start opens a span named after the stage and returns its closer.
func (p *OtelAnnotator) Start(name string) func() {
	if p.skip(name) {
		return noop
	}
	oldContext := p.currentContext
	ctx, span := otel.GetTracerProvider().Tracer(tracerName).Start(p.currentContext, name)
	span.SetAttributes(attribute.String("lust.stage", name))
	p.currentContext = ctx
	return func() {
		span.End()
		p.currentContext = oldContext
	}
}

// Span returns the currently open span, if any.
func (p *OtelAnnotator) Span() trace.Span {
	return trace.SpanFromContext(p.currentContext)
}
