package analysis

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/montanaflynn/stats"
	"gopkg.in/guregu/null.v3"
)

// DefaultBaselinePopulation is the population averaged over the subgroup.
const DefaultBaselinePopulation = "b_cell"

// DefaultSubgroup selects male responders.
func DefaultSubgroup() cohort.Filter {
	return cohort.Filter{Sex: "M", Response: "yes"}
}

// BaselineOptions configures Baseline. The cohort is always restricted to
// time_from_treatment_start = 0.
type BaselineOptions struct {
	Cohort cohort.Filter
	// Population defaults to DefaultBaselinePopulation.
	Population string
	// Subgroup defaults to DefaultSubgroup when empty.
	Subgroup cohort.Filter
}

// SubgroupMean is the mean of one population over a baseline subgroup.
type SubgroupMean struct {
	Population string `json:"population"`
	Filter     string `json:"filter"`
	// Samples is the subgroup size; Measured counts those with a stored count
	// for Population. MeanFrequency skips samples whose total is 0 and is null
	// when none remain.
	Samples       int        `json:"samples"`
	Measured      int        `json:"measured"`
	MeanCount     null.Float `json:"mean_count"`
	MeanFrequency null.Float `json:"mean_frequency"`
	Outcome       Outcome    `json:"outcome"`
}

// BaselineSummary aggregates the baseline cohort.
type BaselineSummary struct {
	Cohort     string             `json:"cohort"`
	Total      int                `json:"total"`
	ByProject  []store.GroupCount `json:"by_project"`
	ByResponse []store.GroupCount `json:"by_response"`
	BySex      []store.GroupCount `json:"by_sex"`
	Subgroup   SubgroupMean       `json:"subgroup"`
}

// Baseline counts baseline samples by project, response and sex, and
// averages one population over a subgroup of them.
func Baseline(ctx context.Context, src Source, opt BaselineOptions) (*BaselineSummary, error) {
	if opt.Population == "" {
		opt.Population = DefaultBaselinePopulation
	}
	if opt.Subgroup.IsEmpty() {
		opt.Subgroup = DefaultSubgroup()
	}
	base := opt.Cohort.Baseline()

	total, err := src.CountSamples(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	sum := &BaselineSummary{Cohort: base.String(), Total: total}
	for _, g := range []struct {
		field cohort.Field
		dst   *[]store.GroupCount
	}{
		{cohort.Project, &sum.ByProject},
		{cohort.Response, &sum.ByResponse},
		{cohort.Sex, &sum.BySex},
	} {
		counts, err := src.CountSamplesBy(ctx, base, g.field)
		if err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		*g.dst = counts
	}

	sub, err := subgroupMean(ctx, src, base, opt)
	if err != nil {
		return nil, fmt.Errorf("baseline subgroup: %w", err)
	}
	sum.Subgroup = sub
	return sum, nil
}

func subgroupMean(ctx context.Context, src Source, base cohort.Filter, opt BaselineOptions) (SubgroupMean, error) {
	res := SubgroupMean{
		Population: opt.Population,
		Filter:     opt.Subgroup.String(),
		Outcome:    OutcomeNoData,
	}
	f, ok := base.Intersect(opt.Subgroup)
	if !ok {
		return res, nil
	}
	n, err := src.CountSamples(ctx, f)
	if err != nil {
		return res, err
	}
	res.Samples = n
	if n == 0 {
		return res, nil
	}
	ms, err := src.Measurements(ctx, f)
	if err != nil {
		return res, err
	}
	counts := stats.Float64Data{}
	for _, m := range ms {
		if m.Population == opt.Population {
			counts = append(counts, float64(m.Count))
		}
	}
	res.Measured = len(counts)
	if res.Measured == 0 {
		return res, nil
	}
	mc, err := stats.Mean(counts)
	if err != nil {
		return res, err
	}
	res.MeanCount = null.FloatFrom(mc)
	res.Outcome = OutcomeComputed

	// Samples with a zero total have no frequency and are left out of its mean.
	tbl, err := RelativeFrequencies(ctx, src, FrequencyOptions{Cohort: f, Populations: []string{opt.Population}})
	if err != nil {
		return res, err
	}
	if len(tbl.Rows) > 0 {
		freqs := make(stats.Float64Data, len(tbl.Rows))
		for i, r := range tbl.Rows {
			freqs[i] = r.Frequency
		}
		mf, err := stats.Mean(freqs)
		if err != nil {
			return res, err
		}
		res.MeanFrequency = null.FloatFrom(mf)
	}
	return res, nil
}
