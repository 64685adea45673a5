// Copyright © 2021 The Lust authors

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/ZekeMedley/lust/lust"
	"github.com/ZekeMedley/lust/profiler"
)

// compileOptions assembles session options from flags and config.
func compileOptions() ([]lust.Option, error) {
	var opts []lust.Option
	if n := viper.GetInt("heap-size"); n > 0 {
		opts = append(opts, lust.WithHeapSize(n))
	}
	switch trace := viper.GetString("trace"); trace {
	case "", "none":
	case "otel":
		opts = append(opts, lust.WithProfiler(
			profiler.NewOpenTelemetryAnnotator(context.Background())))
	case "opencensus":
		opts = append(opts, lust.WithProfiler(
			profiler.NewOpenCensusAnnotator(context.Background())))
	case "pprof":
		opts = append(opts, lust.WithProfiler(
			profiler.NewPprofAnnotator(context.Background())))
	default:
		return nil, fmt.Errorf("unknown trace backend %q", trace)
	}
	return opts, nil
}
