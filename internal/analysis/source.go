// Package analysis computes relative frequencies, responder comparisons and
// baseline cohort summaries over a cell-count store.
package analysis

import (
	"context"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
)

// Source is the read side of a store. *store.DB satisfies it.
type Source interface {
	Measurements(ctx context.Context, f cohort.Filter) ([]store.Measurement, error)
	Samples(ctx context.Context, f cohort.Filter) ([]store.Sample, error)
	CountSamples(ctx context.Context, f cohort.Filter) (int, error)
	CountSamplesBy(ctx context.Context, f cohort.Filter, field cohort.Field) ([]store.GroupCount, error)
}

var _ Source = (*store.DB)(nil)
