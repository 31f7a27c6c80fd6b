package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
)

// FrequencyOptions selects what RelativeFrequencies reports.
type FrequencyOptions struct {
	// Cohort restricts the samples considered. Empty means all samples.
	Cohort cohort.Filter
	// Samples and Populations narrow the returned rows. They are applied
	// after totals, so frequencies keep their full-sample denominator.
	Samples     []string
	Populations []string
}

// FrequencyRow is one (sample, population) pair.
type FrequencyRow struct {
	store.Sample
	Population string  `json:"population"`
	Count      int64   `json:"count"`
	Total      int64   `json:"total_count"`
	Frequency  float64 `json:"frequency"`
}

// Percentage is the relative frequency scaled to 0-100.
func (r FrequencyRow) Percentage() float64 { return r.Frequency * 100 }

// FrequencyTable holds the per-sample relative frequencies.
type FrequencyTable struct {
	Rows []FrequencyRow `json:"rows"`
	// Undefined lists samples whose total count is 0. They have no rows.
	Undefined []string `json:"undefined,omitempty"`
}

// Populations returns the distinct population names in the table, sorted.
func (t *FrequencyTable) Populations() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Population] {
			seen[r.Population] = true
			out = append(out, r.Population)
		}
	}
	sort.Strings(out)
	return out
}

// SampleCount returns the number of distinct samples with rows.
func (t *FrequencyTable) SampleCount() int {
	seen := map[string]bool{}
	for _, r := range t.Rows {
		seen[r.Sample.Sample] = true
	}
	return len(seen)
}

// RelativeFrequencies computes count/total for every measured (sample,
// population) pair in the cohort. Totals are summed over the populations
// present for a sample; missing populations are not zero-filled.
func RelativeFrequencies(ctx context.Context, src Source, opt FrequencyOptions) (*FrequencyTable, error) {
	ms, err := src.Measurements(ctx, opt.Cohort)
	if err != nil {
		return nil, fmt.Errorf("relative frequencies: %w", err)
	}
	totals := make(map[string]int64)
	for _, m := range ms {
		totals[m.Sample.Sample] += m.Count
	}

	keepSample := selection(opt.Samples)
	keepPop := selection(opt.Populations)
	tbl := &FrequencyTable{Rows: make([]FrequencyRow, 0, len(ms))}
	undefined := map[string]bool{}
	for _, m := range ms {
		if !keepSample(m.Sample.Sample) {
			continue
		}
		total := totals[m.Sample.Sample]
		if total == 0 {
			undefined[m.Sample.Sample] = true
			continue
		}
		if !keepPop(m.Population) {
			continue
		}
		tbl.Rows = append(tbl.Rows, FrequencyRow{
			Sample:     m.Sample,
			Population: m.Population,
			Count:      m.Count,
			Total:      total,
			Frequency:  float64(m.Count) / float64(total),
		})
	}
	sort.SliceStable(tbl.Rows, func(i, j int) bool {
		a, b := tbl.Rows[i], tbl.Rows[j]
		if a.Sample.Sample != b.Sample.Sample {
			return a.Sample.Sample < b.Sample.Sample
		}
		return a.Population < b.Population
	})
	for s := range undefined {
		tbl.Undefined = append(tbl.Undefined, s)
	}
	sort.Strings(tbl.Undefined)
	return tbl, nil
}

// selection returns a membership test; an empty list accepts everything.
func selection(names []string) func(string) bool {
	if len(names) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(s string) bool { return set[s] }
}
