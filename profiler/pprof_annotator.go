// Copyright © 2021 The Lust authors

package profiler

import (
	"context"
	"runtime/pprof"

	"github.com/ZekeMedley/lust/lust"
)

var _ lust.Profiler = &PprofAnnotator{}

// PprofAnnotator labels goroutine samples with the active compilation stage
// when pprof profiling is already running. It never starts pprof itself.
type PprofAnnotator struct {
	config
	currentContext context.Context
}

// NewPprofAnnotator builds an annotator labeling samples under
// parentContext.
func NewPprofAnnotator(parentContext context.Context, opts ...Option) *PprofAnnotator {
	if parentContext == nil {
		parentContext = context.Background()
	}
	p := &PprofAnnotator{currentContext: parentContext}
	p.config.apply(opts)
	return p
}

// Start applies a stage label to the goroutine and returns its closer.
func (p *PprofAnnotator) Start(name string) func() {
	if p.skip(name) {
		return noop
	}
	oldContext := p.currentContext
	p.currentContext = pprof.WithLabels(p.currentContext, pprof.Labels("lust_stage", name))
	pprof.SetGoroutineLabels(p.currentContext)
	return func() {
		p.currentContext = oldContext
		pprof.SetGoroutineLabels(p.currentContext)
	}
}
