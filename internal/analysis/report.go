package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"gopkg.in/guregu/null.v3"
)

// ReportOptions configures Run.
type ReportOptions struct {
	// Frequencies is computed over all samples unless a cohort is set here.
	Frequencies FrequencyOptions
	Compare     CompareOptions
	Baseline    BaselineOptions
	// Head limits the frequency rows rendered in Markdown; 0 shows all.
	Head int
}

// Report bundles the three analyses.
type Report struct {
	Store       string           `json:"store,omitempty"`
	Head        int              `json:"-"`
	Alpha       float64          `json:"alpha"`
	Cohort      string           `json:"cohort"`
	Frequencies *FrequencyTable  `json:"frequencies"`
	Comparisons []Comparison     `json:"comparisons"`
	Baseline    *BaselineSummary `json:"baseline"`
}

// Run computes every analysis against src.
func Run(ctx context.Context, src Source, opt ReportOptions) (*Report, error) {
	freq, err := RelativeFrequencies(ctx, src, opt.Frequencies)
	if err != nil {
		return nil, err
	}
	opt.Compare = opt.Compare.withDefaults()
	cmp, err := CompareResponders(ctx, src, opt.Compare)
	if err != nil {
		return nil, err
	}
	base, err := Baseline(ctx, src, opt.Baseline)
	if err != nil {
		return nil, err
	}
	return &Report{
		Head:        opt.Head,
		Alpha:       opt.Compare.Alpha,
		Cohort:      opt.Compare.Cohort.String(),
		Frequencies: freq,
		Comparisons: cmp,
		Baseline:    base,
	}, nil
}

// Markdown renders the report as plain-text sections with pipe tables.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[STORE SUMMARY]\n")
	if r.Store != "" {
		b.WriteString(fmt.Sprintf("Store: %s\n", r.Store))
	}
	b.WriteString(fmt.Sprintf("Cohort: %s\n", r.Cohort))
	if r.Frequencies != nil {
		b.WriteString(fmt.Sprintf("Samples with counts: %d\n", r.Frequencies.SampleCount()))
		b.WriteString(fmt.Sprintf("Populations: %d\n", len(r.Frequencies.Populations())))
	}
	if r.Frequencies != nil {
		b.WriteString("\n")
		b.WriteString(FrequenciesMarkdown(r.Frequencies, r.Head))
	}
	b.WriteString("\n")
	b.WriteString(ComparisonsMarkdown(r.Comparisons, r.Alpha))
	if r.Baseline != nil {
		b.WriteString("\n")
		b.WriteString(r.Baseline.Markdown())
	}
	return b.String()
}

// FrequenciesMarkdown renders up to head rows of t; head <= 0 renders all.
func FrequenciesMarkdown(t *FrequencyTable, head int) string {
	var b strings.Builder
	b.WriteString("[RELATIVE FREQUENCIES]\n")
	rows := t.Rows
	if head > 0 && head < len(rows) {
		rows = rows[:head]
	}
	if len(rows) == 0 {
		b.WriteString("No data: no cell counts in the selected samples.\n")
	} else {
		cells := make([][]string, len(rows))
		for i, r := range rows {
			cells[i] = []string{
				r.Sample.Sample,
				strconv.FormatInt(r.Total, 10),
				r.Population,
				strconv.FormatInt(r.Count, 10),
				fmt.Sprintf("%.2f", r.Percentage()),
			}
		}
		writeTable(&b, []string{"sample", "total_count", "population", "count", "percentage"}, cells)
		if len(rows) < len(t.Rows) {
			b.WriteString(fmt.Sprintf("(showing %d of %d rows)\n", len(rows), len(t.Rows)))
		}
	}
	if len(t.Undefined) > 0 {
		b.WriteString(fmt.Sprintf("\n[NOTES]\n- total count is 0 for %d sample(s), frequency undefined: %s\n",
			len(t.Undefined), strings.Join(t.Undefined, ", ")))
	}
	return b.String()
}

// ComparisonsMarkdown renders responder comparisons. Means are percentages.
func ComparisonsMarkdown(cs []Comparison, alpha float64) string {
	var b strings.Builder
	b.WriteString("[RESPONDER COMPARISON]\n")
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	b.WriteString(fmt.Sprintf("Welch t-test on relative frequency, alpha=%g\n", alpha))
	if len(cs) == 0 {
		b.WriteString("No data: no populations in the cohort.\n")
		return b.String()
	}
	cells := make([][]string, len(cs))
	for i, c := range cs {
		cells[i] = []string{
			c.Population,
			strconv.Itoa(c.Responders.N),
			pct(c.Responders.Mean),
			strconv.Itoa(c.NonResponders.N),
			pct(c.NonResponders.Mean),
			pct(c.Difference),
			num(c.Statistic, "%.4f"),
			num(c.DF, "%.2f"),
			num(c.PValue, "%.4f"),
			significance(c),
		}
	}
	writeTable(&b, []string{"population", "n_resp", "mean_resp_%", "n_non", "mean_non_%", "difference", "t", "df", "p_value", "significant"}, cells)
	return b.String()
}

// Markdown renders the baseline summary.
func (s *BaselineSummary) Markdown() string {
	var b strings.Builder
	b.WriteString("[BASELINE SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Cohort: %s\n", s.Cohort))
	b.WriteString(fmt.Sprintf("Samples: %d\n", s.Total))
	for _, g := range []struct {
		title  string
		counts []store.GroupCount
	}{
		{"project", s.ByProject},
		{"response", s.ByResponse},
		{"sex", s.BySex},
	} {
		b.WriteString(fmt.Sprintf("\nSamples by %s:\n", g.title))
		if len(g.counts) == 0 {
			b.WriteString("(none)\n")
			continue
		}
		cells := make([][]string, len(g.counts))
		for i, c := range g.counts {
			cells[i] = []string{c.Label, strconv.Itoa(c.Count)}
		}
		writeTable(&b, []string{g.title, "count"}, cells)
	}

	sub := s.Subgroup
	b.WriteString(fmt.Sprintf("\nMean %s for %s:\n", sub.Population, sub.Filter))
	switch {
	case sub.Samples == 0:
		b.WriteString("No matching samples.\n")
	case sub.Outcome == OutcomeNoData:
		b.WriteString(fmt.Sprintf("No %s counts in %d matching sample(s).\n", sub.Population, sub.Samples))
	default:
		b.WriteString(fmt.Sprintf("- samples: %d (measured %d)\n", sub.Samples, sub.Measured))
		b.WriteString(fmt.Sprintf("- mean count: %s\n", num(sub.MeanCount, "%.2f")))
		b.WriteString(fmt.Sprintf("- mean relative frequency: %s (%s%%)\n", num(sub.MeanFrequency, "%.4f"), pct(sub.MeanFrequency)))
	}
	return b.String()
}

// Markdown renders the matrix; unmeasured cells are blank.
func (m *Matrix) Markdown() string {
	var b strings.Builder
	b.WriteString("[SAMPLES]\n")
	if len(m.Rows) == 0 {
		b.WriteString("No data: no samples match.\n")
		return b.String()
	}
	header := []string{"sample", "subject", "project", "condition", "age", "sex", "treatment", "response", "sample_type", "time_from_treatment_start"}
	header = append(header, m.Populations...)
	cells := make([][]string, len(m.Rows))
	for i, r := range m.Rows {
		row := []string{
			r.Sample.Sample, r.Subject, r.Project, r.Condition,
			intOrBlank(r.Age), r.Sex.String, r.Treatment.String, r.Response.String,
			r.SampleType.String, intOrBlank(r.TimeFromTreatmentStart),
		}
		for _, c := range r.Counts {
			row = append(row, intOrBlank(c))
		}
		cells[i] = row
	}
	writeTable(&b, header, cells)
	return b.String()
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(header, " | "))
	b.WriteString(" |\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i := range header {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
}

func significance(c Comparison) string {
	if c.Outcome != OutcomeTested {
		return string(c.Outcome)
	}
	if c.Significant {
		return "yes"
	}
	return "no"
}

func pct(f null.Float) string {
	if !f.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f.Float64*100)
}

func num(f null.Float, format string) string {
	if !f.Valid {
		return "n/a"
	}
	return fmt.Sprintf(format, f.Float64)
}

func intOrBlank(n null.Int) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
