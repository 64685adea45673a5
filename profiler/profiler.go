// Copyright © 2021 The Lust authors

// Package profiler provides lust.Profiler implementations that annotate
// compilation stages with tracing backends.
package profiler

import "strings"

type config struct {
	skipPrefixes []string
}

// Option configures an annotator.
type Option func(*config)

// WithSkipPrefix drops stages whose name starts with any given prefix. Use
// it to silence the per-function emit stages of large programs.
func WithSkipPrefix(prefixes ...string) Option {
	return func(c *config) {
		c.skipPrefixes = append(c.skipPrefixes, prefixes...)
	}
}

func (c *config) apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func (c *config) skip(name string) bool {
	for _, p := range c.skipPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func noop() {}
