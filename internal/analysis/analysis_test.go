package analysis

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"gopkg.in/guregu/null.v3"
)

var melanoma = cohort.Filter{Condition: "melanoma", SampleType: "PBMC", Treatment: "miraclib"}

func rec(id, project, response, sex string, time int64, counts ...store.PopulationCount) store.Record {
	s := store.Sample{
		Sample:                 id,
		Subject:                "subj-" + id,
		Project:                project,
		Condition:              "melanoma",
		Treatment:              null.StringFrom("miraclib"),
		SampleType:             null.StringFrom("PBMC"),
		TimeFromTreatmentStart: null.IntFrom(time),
	}
	if response != "" {
		s.Response = null.StringFrom(response)
	}
	if sex != "" {
		s.Sex = null.StringFrom(sex)
	}
	return store.Record{Sample: s, Counts: counts}
}

func pc(pop string, n int64) store.PopulationCount {
	return store.PopulationCount{Population: pop, Count: n}
}

// openStore builds a store from records and returns a read-only handle.
func openStore(t *testing.T, records ...store.Record) *store.DB {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cells.db")
	w, err := store.Create(ctx, path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if err := w.Ingest(ctx, store.IngestRun{ID: "test", Source: "test", LoadedAt: "2026-01-01T00:00:00Z", Samples: len(records)}, records); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	db, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// scenario is the three-sample store: S1 and S2 baseline in project A, S3 at
// day 7 in project B.
func scenario(t *testing.T) *store.DB {
	return openStore(t,
		rec("S1", "A", "yes", "M", 0, pc("b_cell", 100), pc("other", 900)),
		rec("S2", "A", "no", "F", 0, pc("b_cell", 50), pc("other", 950)),
		rec("S3", "B", "yes", "M", 7, pc("b_cell", 30), pc("other", 970)),
	)
}

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func assertGroups(t *testing.T, name string, got, want []store.GroupCount) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s groups = %+v, want %+v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s group %d = %+v, want %+v", name, i, got[i], want[i])
		}
	}
}

func TestRelativeFrequenciesSumToOne(t *testing.T) {
	db := openStore(t,
		rec("s1", "p", "yes", "M", 0, pc("b_cell", 3), pc("cd4_t_cell", 7), pc("monocyte", 11)),
		rec("s2", "p", "no", "F", 0, pc("b_cell", 1)),
		rec("s3", "p", "no", "F", 0, pc("b_cell", 0), pc("monocyte", 5)),
	)
	tbl, err := RelativeFrequencies(context.Background(), db, FrequencyOptions{})
	if err != nil {
		t.Fatalf("RelativeFrequencies: %v", err)
	}
	if len(tbl.Rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(tbl.Rows))
	}
	sums := map[string]float64{}
	for _, r := range tbl.Rows {
		if r.Frequency < 0 || r.Frequency > 1 {
			t.Fatalf("frequency out of range: %+v", r)
		}
		sums[r.Sample.Sample] += r.Frequency
	}
	for s, sum := range sums {
		if !approx(sum, 1, 1e-9) {
			t.Fatalf("sample %s frequencies sum to %v", s, sum)
		}
	}
	first := tbl.Rows[0]
	if first.Sample.Sample != "s1" || first.Population != "b_cell" || first.Total != 21 || first.Count != 3 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if !approx(first.Percentage(), 100.0*3/21, 1e-9) {
		t.Fatalf("percentage = %v", first.Percentage())
	}
	if got := strings.Join(tbl.Populations(), ","); got != "b_cell,cd4_t_cell,monocyte" {
		t.Fatalf("populations = %s", got)
	}
}

func TestRelativeFrequenciesZeroTotal(t *testing.T) {
	db := openStore(t,
		rec("empty", "p", "yes", "M", 0, pc("b_cell", 0), pc("monocyte", 0)),
		rec("full", "p", "yes", "M", 0, pc("b_cell", 2), pc("monocyte", 2)),
	)
	tbl, err := RelativeFrequencies(context.Background(), db, FrequencyOptions{})
	if err != nil {
		t.Fatalf("RelativeFrequencies: %v", err)
	}
	if len(tbl.Undefined) != 1 || tbl.Undefined[0] != "empty" {
		t.Fatalf("undefined = %v", tbl.Undefined)
	}
	for _, r := range tbl.Rows {
		if r.Sample.Sample == "empty" {
			t.Fatalf("zero-total sample produced a row: %+v", r)
		}
		if math.IsNaN(r.Frequency) {
			t.Fatalf("NaN frequency: %+v", r)
		}
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl.Rows))
	}
}

func TestRelativeFrequenciesSelectionKeepsDenominator(t *testing.T) {
	db := scenario(t)
	tbl, err := RelativeFrequencies(context.Background(), db, FrequencyOptions{
		Samples:     []string{"S1"},
		Populations: []string{"b_cell"},
	})
	if err != nil {
		t.Fatalf("RelativeFrequencies: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("rows = %+v", tbl.Rows)
	}
	if r := tbl.Rows[0]; r.Total != 1000 || !approx(r.Frequency, 0.10, 1e-12) {
		t.Fatalf("selection changed the denominator: %+v", r)
	}
}

func TestRelativeFrequenciesEmptyStore(t *testing.T) {
	db := openStore(t)
	tbl, err := RelativeFrequencies(context.Background(), db, FrequencyOptions{})
	if err != nil {
		t.Fatalf("RelativeFrequencies: %v", err)
	}
	if len(tbl.Rows) != 0 || len(tbl.Undefined) != 0 {
		t.Fatalf("expected empty table, got %+v", tbl)
	}
}

func TestRelativeFrequenciesDoesNotAliasSource(t *testing.T) {
	db := scenario(t)
	ctx := context.Background()
	a, err := RelativeFrequencies(ctx, db, FrequencyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	a.Rows[0].Count = -1
	a.Rows[0].Sample.Sample = "mutated"
	b, err := RelativeFrequencies(ctx, db, FrequencyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if b.Rows[0].Count != 100 || b.Rows[0].Sample.Sample != "S1" {
		t.Fatalf("second call saw mutation: %+v", b.Rows[0])
	}
}

func TestWelchReferenceValues(t *testing.T) {
	res, err := WelchFromSummary(10, 4, 5, 12, 9, 7)
	if err != nil {
		t.Fatalf("WelchFromSummary: %v", err)
	}
	if !approx(res.T, -1.38485, 1e-4) {
		t.Fatalf("t = %v, want -1.38485", res.T)
	}
	if !approx(res.DF, 9.98875, 1e-4) {
		t.Fatalf("df = %v, want 9.98875", res.DF)
	}
	if res.P <= 0.19 || res.P >= 0.20 {
		t.Fatalf("p = %v, want about 0.196", res.P)
	}

	// raw groups with the same summary statistics
	raw, err := WelchTTest([]float64{8, 8, 10, 12, 12}, []float64{9, 9, 9, 12, 15, 15, 15})
	if err != nil {
		t.Fatalf("WelchTTest: %v", err)
	}
	if !approx(raw.T, res.T, 1e-9) || !approx(raw.DF, res.DF, 1e-9) || !approx(raw.P, res.P, 1e-9) {
		t.Fatalf("raw %+v != summary %+v", raw, res)
	}
}

func TestWelchPValueMatchesTTable(t *testing.T) {
	cases := []struct {
		t, df float64
	}{
		{2.228139, 10},
		{2.776445, 4},
		{2.085963, 20},
	}
	for _, tc := range cases {
		// equal sizes and variances make the statistic and df exact
		n := int(tc.df/2) + 1
		v := 1.0
		se := math.Sqrt(2 * v / float64(n))
		res, err := WelchFromSummary(tc.t*se, v, n, 0, v, n)
		if err != nil {
			t.Fatalf("df=%v: %v", tc.df, err)
		}
		if !approx(res.DF, tc.df, 1e-9) {
			t.Fatalf("df = %v, want %v", res.DF, tc.df)
		}
		if !approx(res.P, 0.05, 1e-4) {
			t.Fatalf("t=%v df=%v: p = %v, want 0.05", tc.t, tc.df, res.P)
		}
	}
}

func TestWelchEdgeCases(t *testing.T) {
	if _, err := WelchTTest([]float64{1}, []float64{1, 2, 3}); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := WelchTTest(nil, nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty groups, got %v", err)
	}
	if _, err := WelchTTest([]float64{2, 2, 2}, []float64{5, 5}); !errors.Is(err, ErrZeroVariance) {
		t.Fatalf("expected ErrZeroVariance, got %v", err)
	}
	// one constant group still has a defined standard error
	res, err := WelchTTest([]float64{2, 2, 2}, []float64{4, 5, 6})
	if err != nil {
		t.Fatalf("one zero-variance group: %v", err)
	}
	if !approx(res.DF, 2, 1e-9) {
		t.Fatalf("df = %v, want 2", res.DF)
	}
}

func responderStore(t *testing.T) *store.DB {
	return openStore(t,
		rec("r1", "p", "yes", "M", 0, pc("b_cell", 10), pc("monocyte", 90)),
		rec("r2", "p", "yes", "F", 0, pc("b_cell", 20), pc("monocyte", 80)),
		rec("r3", "p", "yes", "M", 0, pc("b_cell", 30), pc("monocyte", 70)),
		rec("n1", "p", "no", "F", 0, pc("b_cell", 40), pc("monocyte", 60)),
		rec("n2", "p", "no", "M", 0, pc("b_cell", 50), pc("monocyte", 50)),
		rec("n3", "p", "no", "F", 0, pc("b_cell", 60), pc("monocyte", 40), pc("nk_cell", 0)),
		rec("u1", "p", "", "F", 0, pc("b_cell", 99), pc("monocyte", 1)),
	)
}

func TestCompareRespondersAllPopulations(t *testing.T) {
	db := responderStore(t)
	cs, err := CompareResponders(context.Background(), db, CompareOptions{Cohort: melanoma})
	if err != nil {
		t.Fatalf("CompareResponders: %v", err)
	}
	if len(cs) != 3 {
		t.Fatalf("comparisons = %+v", cs)
	}
	names := []string{cs[0].Population, cs[1].Population, cs[2].Population}
	if strings.Join(names, ",") != "b_cell,monocyte,nk_cell" {
		t.Fatalf("populations not sorted: %v", names)
	}

	b := cs[0]
	if b.Outcome != OutcomeTested || b.Err() != nil {
		t.Fatalf("b_cell outcome = %s", b.Outcome)
	}
	if b.Responders.N != 3 || b.NonResponders.N != 3 {
		t.Fatalf("group sizes: %+v / %+v", b.Responders, b.NonResponders)
	}
	if !approx(b.Responders.Mean.Float64, 0.2, 1e-12) || !approx(b.NonResponders.Mean.Float64, 0.5, 1e-12) {
		t.Fatalf("means: %+v / %+v", b.Responders, b.NonResponders)
	}
	if !approx(b.Responders.Std.Float64, 0.1, 1e-12) {
		t.Fatalf("std = %v, want 0.1", b.Responders.Std.Float64)
	}
	if !approx(b.Difference.Float64, -0.3, 1e-12) {
		t.Fatalf("difference = %v", b.Difference.Float64)
	}
	want, err := WelchTTest([]float64{0.1, 0.2, 0.3}, []float64{0.4, 0.5, 0.6})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(b.Statistic.Float64, want.T, 1e-9) || !approx(b.PValue.Float64, want.P, 1e-9) || !approx(b.DF.Float64, 4, 1e-9) {
		t.Fatalf("test values: %+v, want %+v", b, want)
	}
	if !b.Significant || b.PValue.Float64 >= DefaultAlpha {
		t.Fatalf("expected significant result, p = %v", b.PValue.Float64)
	}

	nk := cs[2]
	if nk.Outcome != OutcomeInsufficientData || !errors.Is(nk.Err(), ErrInsufficientData) {
		t.Fatalf("nk_cell outcome = %s", nk.Outcome)
	}
	if nk.PValue.Valid || nk.Statistic.Valid || nk.Significant {
		t.Fatalf("insufficient comparison carries a test result: %+v", nk)
	}
	if nk.Responders.Mean.Valid || nk.Difference.Valid {
		t.Fatalf("empty responder group has a mean: %+v", nk)
	}
}

func TestCompareRespondersAlpha(t *testing.T) {
	db := responderStore(t)
	cs, err := CompareResponders(context.Background(), db, CompareOptions{Cohort: melanoma, Population: "b_cell", Alpha: 0.001})
	if err != nil {
		t.Fatalf("CompareResponders: %v", err)
	}
	if len(cs) != 1 || cs[0].Significant {
		t.Fatalf("p = %v should not be significant at 0.001", cs[0].PValue.Float64)
	}
}

func TestCompareRespondersSingleSampleGroup(t *testing.T) {
	db := openStore(t,
		rec("r1", "p", "yes", "M", 0, pc("b_cell", 10), pc("monocyte", 90)),
		rec("n1", "p", "no", "F", 0, pc("b_cell", 40), pc("monocyte", 60)),
		rec("n2", "p", "no", "M", 0, pc("b_cell", 50), pc("monocyte", 50)),
	)
	cs, err := CompareResponders(context.Background(), db, CompareOptions{Cohort: melanoma, Population: "b_cell"})
	if err != nil {
		t.Fatalf("CompareResponders: %v", err)
	}
	c := cs[0]
	if c.Outcome != OutcomeInsufficientData || c.PValue.Valid {
		t.Fatalf("expected insufficient_data without p-value, got %+v", c)
	}
	if c.Responders.N != 1 || c.Responders.Std.Valid || !c.Responders.Mean.Valid {
		t.Fatalf("responder stats: %+v", c.Responders)
	}
}

func TestCompareRespondersAbsentPopulation(t *testing.T) {
	db := responderStore(t)
	cs, err := CompareResponders(context.Background(), db, CompareOptions{Cohort: melanoma, Population: "dendritic_cell"})
	if err != nil {
		t.Fatalf("CompareResponders: %v", err)
	}
	if len(cs) != 1 || cs[0].Outcome != OutcomeNoData || !errors.Is(cs[0].Err(), ErrNoData) {
		t.Fatalf("expected one no_data record, got %+v", cs)
	}
	if cs[0].Responders.Mean.Valid || cs[0].NonResponders.N != 0 {
		t.Fatalf("no_data record carries numbers: %+v", cs[0])
	}
}

func TestCompareRespondersEmptyCohort(t *testing.T) {
	db := responderStore(t)
	cs, err := CompareResponders(context.Background(), db, CompareOptions{Cohort: cohort.Filter{Condition: "carcinoma"}})
	if err != nil {
		t.Fatalf("CompareResponders: %v", err)
	}
	if len(cs) != 0 {
		t.Fatalf("expected no comparisons, got %+v", cs)
	}
}

func TestCompareRespondersZeroVariance(t *testing.T) {
	db := openStore(t,
		rec("r1", "p", "yes", "M", 0, pc("b_cell", 10), pc("monocyte", 90)),
		rec("r2", "p", "yes", "M", 0, pc("b_cell", 10), pc("monocyte", 90)),
		rec("n1", "p", "no", "F", 0, pc("b_cell", 20), pc("monocyte", 80)),
		rec("n2", "p", "no", "F", 0, pc("b_cell", 20), pc("monocyte", 80)),
	)
	cs, err := CompareResponders(context.Background(), db, CompareOptions{Cohort: melanoma, Population: "b_cell"})
	if err != nil {
		t.Fatalf("CompareResponders: %v", err)
	}
	c := cs[0]
	if c.Outcome != OutcomeZeroVariance || !errors.Is(c.Err(), ErrZeroVariance) {
		t.Fatalf("outcome = %s", c.Outcome)
	}
	if c.PValue.Valid || c.Statistic.Valid {
		t.Fatalf("zero variance produced a test result: %+v", c)
	}
	if !approx(c.Difference.Float64, -0.1, 1e-12) {
		t.Fatalf("difference = %v", c.Difference.Float64)
	}
}

func TestCompareRespondersCustomLabels(t *testing.T) {
	db := openStore(t,
		rec("a", "p", "responder", "M", 0, pc("b_cell", 1), pc("monocyte", 9)),
		rec("b", "p", "responder", "M", 0, pc("b_cell", 2), pc("monocyte", 8)),
		rec("c", "p", "progressor", "F", 0, pc("b_cell", 5), pc("monocyte", 5)),
		rec("d", "p", "progressor", "F", 0, pc("b_cell", 7), pc("monocyte", 3)),
	)
	cs, err := CompareResponders(context.Background(), db, CompareOptions{Population: "b_cell", Positive: "responder", Negative: "progressor"})
	if err != nil {
		t.Fatalf("CompareResponders: %v", err)
	}
	if cs[0].Outcome != OutcomeTested || cs[0].Responders.N != 2 || cs[0].NonResponders.N != 2 {
		t.Fatalf("custom labels not applied: %+v", cs[0])
	}
}

func TestBaselineScenario(t *testing.T) {
	db := scenario(t)
	sum, err := Baseline(context.Background(), db, BaselineOptions{Cohort: melanoma})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if sum.Total != 2 {
		t.Fatalf("total = %d, want 2", sum.Total)
	}
	assertGroups(t, "project", sum.ByProject, []store.GroupCount{{Label: "A", Count: 2}})
	assertGroups(t, "response", sum.ByResponse, []store.GroupCount{{Label: "no", Count: 1}, {Label: "yes", Count: 1}})
	assertGroups(t, "sex", sum.BySex, []store.GroupCount{{Label: "F", Count: 1}, {Label: "M", Count: 1}})

	sub := sum.Subgroup
	if sub.Population != "b_cell" || sub.Filter != "response=yes, sex=M" {
		t.Fatalf("subgroup defaults: %+v", sub)
	}
	if sub.Samples != 1 || sub.Measured != 1 || sub.Outcome != OutcomeComputed {
		t.Fatalf("subgroup: %+v", sub)
	}
	if !approx(sub.MeanFrequency.Float64, 0.10, 1e-12) {
		t.Fatalf("mean frequency = %v, want 0.10", sub.MeanFrequency.Float64)
	}
	if !approx(sub.MeanCount.Float64, 100, 1e-12) {
		t.Fatalf("mean count = %v, want 100", sub.MeanCount.Float64)
	}
}

func TestBaselineGroupCountsSumToTotal(t *testing.T) {
	db := openStore(t,
		rec("a", "p1", "yes", "M", 0, pc("b_cell", 1)),
		rec("b", "p1", "no", "", 0, pc("b_cell", 1)),
		rec("c", "p2", "", "F", 0, pc("b_cell", 1)),
		rec("d", "p3", "yes", "F", 0),
		rec("e", "p3", "yes", "F", 14, pc("b_cell", 1)),
	)
	sum, err := Baseline(context.Background(), db, BaselineOptions{})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if sum.Total != 4 {
		t.Fatalf("total = %d, want 4", sum.Total)
	}
	for name, groups := range map[string][]store.GroupCount{
		"project": sum.ByProject, "response": sum.ByResponse, "sex": sum.BySex,
	} {
		n := 0
		for _, g := range groups {
			n += g.Count
		}
		if n != sum.Total {
			t.Fatalf("%s counts sum to %d, want %d (%+v)", name, n, sum.Total, groups)
		}
	}
	assertGroups(t, "sex", sum.BySex, []store.GroupCount{{Label: "F", Count: 2}, {Label: "M", Count: 1}, {Label: store.UnknownLabel, Count: 1}})
}

func TestBaselineMeanCountKeepsZeroTotals(t *testing.T) {
	db := openStore(t,
		rec("a", "p", "yes", "M", 0, pc("b_cell", 100), pc("monocyte", 900)),
		rec("b", "p", "yes", "M", 0, pc("b_cell", 0)),
	)
	sum, err := Baseline(context.Background(), db, BaselineOptions{Cohort: melanoma})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	sub := sum.Subgroup
	if sub.Samples != 2 || sub.Measured != 2 || sub.Outcome != OutcomeComputed {
		t.Fatalf("subgroup: %+v", sub)
	}
	if !approx(sub.MeanCount.Float64, 50, 1e-12) {
		t.Fatalf("mean count = %v, want 50", sub.MeanCount.Float64)
	}
	if !approx(sub.MeanFrequency.Float64, 0.10, 1e-12) {
		t.Fatalf("mean frequency = %v, want 0.10 over defined frequencies", sub.MeanFrequency.Float64)
	}

	db = openStore(t, rec("b", "p", "yes", "M", 0, pc("b_cell", 0)))
	sum, err = Baseline(context.Background(), db, BaselineOptions{Cohort: melanoma})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	sub = sum.Subgroup
	if sub.Outcome != OutcomeComputed || sub.Measured != 1 || !sub.MeanCount.Valid || sub.MeanCount.Float64 != 0 {
		t.Fatalf("stored zero count should give a computed mean of 0: %+v", sub)
	}
	if sub.MeanFrequency.Valid {
		t.Fatalf("mean frequency should be null without a defined frequency: %+v", sub)
	}
}

func TestBaselineEmptySubgroup(t *testing.T) {
	db := openStore(t,
		rec("a", "p", "no", "F", 0, pc("b_cell", 5), pc("monocyte", 5)),
	)
	sum, err := Baseline(context.Background(), db, BaselineOptions{Cohort: melanoma})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	sub := sum.Subgroup
	if sub.Outcome != OutcomeNoData || sub.Samples != 0 || sub.MeanCount.Valid || sub.MeanFrequency.Valid {
		t.Fatalf("expected no_data subgroup, got %+v", sub)
	}
	if !strings.Contains(sum.Markdown(), "No matching samples.") {
		t.Fatalf("markdown missing no-match line:\n%s", sum.Markdown())
	}
}

func TestBaselineSubgroupWithoutPopulation(t *testing.T) {
	db := openStore(t,
		rec("a", "p", "yes", "M", 0, pc("monocyte", 5)),
	)
	sum, err := Baseline(context.Background(), db, BaselineOptions{})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if sub := sum.Subgroup; sub.Samples != 1 || sub.Measured != 0 || sub.Outcome != OutcomeNoData || sub.MeanCount.Valid {
		t.Fatalf("subgroup: %+v", sub)
	}
}

func TestBaselineContradictorySubgroup(t *testing.T) {
	db := scenario(t)
	day7 := 7
	sum, err := Baseline(context.Background(), db, BaselineOptions{
		Cohort:   melanoma,
		Subgroup: cohort.Filter{TimeFromTreatmentStart: &day7},
	})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if sum.Subgroup.Outcome != OutcomeNoData || sum.Subgroup.Samples != 0 {
		t.Fatalf("subgroup: %+v", sum.Subgroup)
	}
}

func TestSampleMatrix(t *testing.T) {
	db := openStore(t,
		rec("s2", "p", "no", "F", 0, pc("monocyte", 7)),
		rec("s1", "p", "yes", "M", 0, pc("b_cell", 3), pc("monocyte", 4)),
		rec("s3", "p", "yes", "M", 0),
	)
	mx, err := SampleMatrix(context.Background(), db, cohort.Filter{})
	if err != nil {
		t.Fatalf("SampleMatrix: %v", err)
	}
	if strings.Join(mx.Populations, ",") != "b_cell,monocyte" {
		t.Fatalf("populations = %v", mx.Populations)
	}
	if len(mx.Rows) != 3 || mx.Rows[0].Sample.Sample != "s1" || mx.Rows[2].Sample.Sample != "s3" {
		t.Fatalf("rows not ordered by sample: %+v", mx.Rows)
	}
	if c := mx.Rows[1].Counts; c[0].Valid || c[1].Int64 != 7 {
		t.Fatalf("s2 counts = %+v", c)
	}
	if c := mx.Rows[2].Counts; c[0].Valid || c[1].Valid {
		t.Fatalf("s3 should have no counts: %+v", c)
	}
	md := mx.Markdown()
	if !strings.Contains(md, "| s2 | subj-s2 | p | melanoma |  | F | miraclib | no | PBMC | 0 |  | 7 |") {
		t.Fatalf("matrix markdown missing blank cell row:\n%s", md)
	}
}

func TestRunAndMarkdown(t *testing.T) {
	db := scenario(t)
	rep, err := Run(context.Background(), db, ReportOptions{
		Compare:  CompareOptions{Cohort: melanoma},
		Baseline: BaselineOptions{Cohort: melanoma},
		Head:     3,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rep.Store = "cells.db"
	if rep.Alpha != DefaultAlpha {
		t.Fatalf("alpha = %v", rep.Alpha)
	}
	md := rep.Markdown()
	for _, want := range []string{
		"[STORE SUMMARY]",
		"Store: cells.db",
		"Cohort: condition=melanoma, sample_type=PBMC, treatment=miraclib",
		"[RELATIVE FREQUENCIES]",
		"| S1 | 1000 | b_cell | 100 | 10.00 |",
		"(showing 3 of 6 rows)",
		"[RESPONDER COMPARISON]",
		"| b_cell | 2 | 6.50 | 1 | 5.00 | 1.50 | n/a | n/a | n/a | insufficient_data |",
		"[BASELINE SUMMARY]",
		"| A | 2 |",
		"- mean count: 100.00",
		"- mean relative frequency: 0.1000 (10.00%)",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestComparisonsMarkdownNoData(t *testing.T) {
	md := ComparisonsMarkdown(nil, 0)
	if !strings.Contains(md, "alpha=0.05") || !strings.Contains(md, "No data") {
		t.Fatalf("unexpected markdown: %s", md)
	}
}
