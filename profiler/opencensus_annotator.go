// Copyright © 2021 The Lust authors

package profiler

import (
	"context"

	"go.opencensus.io/trace"

	"github.com/ZekeMedley/lust/lust"
)

var _ lust.Profiler = &OpenCensusAnnotator{}

// OpenCensusAnnotator opens an OpenCensus span for every compilation stage.
type OpenCensusAnnotator struct {
	config
	currentContext context.Context
}

// NewOpenCensusAnnotator builds an annotator attaching spans under
// parentContext.
func NewOpenCensusAnnotator(parentContext context.Context, opts ...Option) *OpenCensusAnnotator {
	if parentContext == nil {
		parentContext = context.Background()
	}
	p := &OpenCensusAnnotator{currentContext: parentContext}
	p.config.apply(opts)
	return p
}

// Start opens a span named after the stage and returns its closer.
func (p *OpenCensusAnnotator) Start(name string) func() {
	if p.skip(name) {
		return noop
	}
	oldContext := p.currentContext
	ctx, span := trace.StartSpan(p.currentContext, name)
	p.currentContext = ctx
	return func() {
		span.End()
		p.currentContext = oldContext
	}
}
