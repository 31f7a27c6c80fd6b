package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"
)

// CompareOptions configures CompareResponders.
type CompareOptions struct {
	Cohort cohort.Filter
	// Population limits the comparison to one population. Empty compares
	// every population present in the cohort.
	Population string
	// Alpha is the significance threshold; 0 means DefaultAlpha.
	Alpha float64
	// Positive and Negative are the response labels of the two groups.
	// They default to "yes" and "no".
	Positive string
	Negative string
}

func (o CompareOptions) withDefaults() CompareOptions {
	if o.Alpha <= 0 {
		o.Alpha = DefaultAlpha
	}
	if o.Positive == "" {
		o.Positive = "yes"
	}
	if o.Negative == "" {
		o.Negative = "no"
	}
	return o
}

// GroupStats summarizes the relative frequencies of one response group.
// Mean is null for an empty group and Std is null below two samples.
type GroupStats struct {
	N    int        `json:"n"`
	Mean null.Float `json:"mean"`
	Std  null.Float `json:"std"`
}

// Comparison is the responder vs non-responder result for one population.
type Comparison struct {
	Population    string     `json:"population"`
	Responders    GroupStats `json:"responders"`
	NonResponders GroupStats `json:"non_responders"`
	// Difference is the responder mean minus the non-responder mean.
	Difference  null.Float `json:"difference"`
	Statistic   null.Float `json:"t_statistic"`
	DF          null.Float `json:"df"`
	PValue      null.Float `json:"p_value"`
	Significant bool       `json:"significant"`
	Outcome     Outcome    `json:"outcome"`
}

// Err returns the sentinel error for an untested comparison, or nil.
func (c Comparison) Err() error { return c.Outcome.Err() }

type responseGroups struct {
	pos, neg []float64
}

// CompareResponders runs a Welch t-test on relative frequencies between
// responders and non-responders for each population in the cohort, sorted
// by population. Samples with any other response label are ignored.
func CompareResponders(ctx context.Context, src Source, opt CompareOptions) ([]Comparison, error) {
	opt = opt.withDefaults()
	fo := FrequencyOptions{Cohort: opt.Cohort}
	if opt.Population != "" {
		fo.Populations = []string{opt.Population}
	}
	tbl, err := RelativeFrequencies(ctx, src, fo)
	if err != nil {
		return nil, fmt.Errorf("compare responders: %w", err)
	}

	groups := map[string]*responseGroups{}
	for _, r := range tbl.Rows {
		g, ok := groups[r.Population]
		if !ok {
			g = &responseGroups{}
			groups[r.Population] = g
		}
		if !r.Response.Valid {
			continue
		}
		switch r.Response.String {
		case opt.Positive:
			g.pos = append(g.pos, r.Frequency)
		case opt.Negative:
			g.neg = append(g.neg, r.Frequency)
		}
	}

	if opt.Population != "" {
		g, ok := groups[opt.Population]
		if !ok {
			return []Comparison{{Population: opt.Population, Outcome: OutcomeNoData}}, nil
		}
		return []Comparison{compareGroups(opt.Population, g, opt.Alpha)}, nil
	}

	pops := make([]string, 0, len(groups))
	for p := range groups {
		pops = append(pops, p)
	}
	sort.Strings(pops)
	out := make([]Comparison, 0, len(pops))
	for _, p := range pops {
		out = append(out, compareGroups(p, groups[p], opt.Alpha))
	}
	return out, nil
}

func compareGroups(pop string, g *responseGroups, alpha float64) Comparison {
	c := Comparison{
		Population:    pop,
		Responders:    describe(g.pos),
		NonResponders: describe(g.neg),
	}
	if c.Responders.Mean.Valid && c.NonResponders.Mean.Valid {
		c.Difference = null.FloatFrom(c.Responders.Mean.Float64 - c.NonResponders.Mean.Float64)
	}
	res, err := WelchTTest(g.pos, g.neg)
	c.Outcome = outcomeOf(err)
	if err != nil {
		return c
	}
	c.Statistic = null.FloatFrom(res.T)
	c.DF = null.FloatFrom(res.DF)
	c.PValue = null.FloatFrom(res.P)
	c.Significant = res.P < alpha
	return c
}

func describe(xs []float64) GroupStats {
	gs := GroupStats{N: len(xs)}
	if len(xs) > 0 {
		gs.Mean = null.FloatFrom(stat.Mean(xs, nil))
	}
	if len(xs) > 1 {
		gs.Std = null.FloatFrom(stat.StdDev(xs, nil))
	}
	return gs
}
