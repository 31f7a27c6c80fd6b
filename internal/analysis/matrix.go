package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"gopkg.in/guregu/null.v3"
)

// Matrix is the wide view of a cohort: one row per sample, one column per
// population.
type Matrix struct {
	Populations []string    `json:"populations"`
	Rows        []MatrixRow `json:"rows"`
}

// MatrixRow holds a sample's metadata and its counts in Populations order.
// Unmeasured populations are null.
type MatrixRow struct {
	store.Sample
	Counts []null.Int `json:"counts"`
}

// SampleMatrix pivots the cohort's counts. Samples without any count are
// included with all-null counts.
func SampleMatrix(ctx context.Context, src Source, f cohort.Filter) (*Matrix, error) {
	samples, err := src.Samples(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("sample matrix: %w", err)
	}
	ms, err := src.Measurements(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("sample matrix: %w", err)
	}

	counts := map[string]map[string]int64{}
	popSet := map[string]bool{}
	for _, m := range ms {
		byPop, ok := counts[m.Sample.Sample]
		if !ok {
			byPop = map[string]int64{}
			counts[m.Sample.Sample] = byPop
		}
		byPop[m.Population] = m.Count
		popSet[m.Population] = true
	}
	mx := &Matrix{Populations: make([]string, 0, len(popSet))}
	for p := range popSet {
		mx.Populations = append(mx.Populations, p)
	}
	sort.Strings(mx.Populations)

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Sample < samples[j].Sample })
	mx.Rows = make([]MatrixRow, 0, len(samples))
	for _, s := range samples {
		row := MatrixRow{Sample: s, Counts: make([]null.Int, len(mx.Populations))}
		for i, p := range mx.Populations {
			if n, ok := counts[s.Sample][p]; ok {
				row.Counts[i] = null.IntFrom(n)
			}
		}
		mx.Rows = append(mx.Rows, row)
	}
	return mx, nil
}
