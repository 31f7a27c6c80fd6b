package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/KaramelBytes/cellstat-cli/internal/cohort"
)

const sampleColumns = `s.id AS id, s.sample AS sample, s.subject AS subject, s.project AS project,
	s.condition AS condition, s.age AS age, s.sex AS sex, s.treatment AS treatment,
	s.response AS response, s.sample_type AS sample_type,
	s.time_from_treatment_start AS time_from_treatment_start`

// Measurements returns every (sample, population) count for samples matching
// f, ordered by sample identifier then population.
func (d *DB) Measurements(ctx context.Context, f cohort.Filter) ([]Measurement, error) {
	q := `SELECT ` + sampleColumns + `, c.population AS population, c.count AS count
		FROM samples s
		JOIN cell_counts c ON c.sample_id = s.id`
	where, args := f.Where("s")
	q += whereClause(where) + ` ORDER BY s.sample, c.population`

	var out []Measurement
	if err := d.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	return out, nil
}

// Samples returns the sample metadata matching f, ordered by identifier.
func (d *DB) Samples(ctx context.Context, f cohort.Filter) ([]Sample, error) {
	q := `SELECT ` + sampleColumns + ` FROM samples s`
	where, args := f.Where("s")
	q += whereClause(where) + ` ORDER BY s.sample`

	var out []Sample
	if err := d.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	return out, nil
}

// CountSamples returns the number of samples matching f.
func (d *DB) CountSamples(ctx context.Context, f cohort.Filter) (int, error) {
	where, args := f.Where("s")
	var n int
	if err := d.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM samples s`+whereClause(where), args...); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// CountSamplesBy groups the samples matching f by field. NULL and empty
// labels are reported as UnknownLabel. Buckets are ordered by label.
func (d *DB) CountSamplesBy(ctx context.Context, f cohort.Filter, field cohort.Field) ([]GroupCount, error) {
	if !field.Groupable() {
		return nil, fmt.Errorf("cannot group samples by %q", field)
	}
	where, args := f.Where("s")
	q := fmt.Sprintf(`SELECT COALESCE(NULLIF(CAST(s.%s AS TEXT), ''), '%s') AS label, COUNT(*) AS n
		FROM samples s%s
		GROUP BY label
		ORDER BY label`, field, UnknownLabel, whereClause(where))

	var out []GroupCount
	if err := d.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("count samples by %s: %w", field, err)
	}
	return out, nil
}

// Stats reports relation sizes.
func (d *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := d.db.GetContext(ctx, &s, `SELECT
		(SELECT COUNT(*) FROM samples) AS samples,
		(SELECT COUNT(*) FROM cell_counts) AS cell_counts,
		(SELECT COUNT(DISTINCT population) FROM cell_counts) AS populations`)
	if err != nil {
		return Stats{}, fmt.Errorf("store stats: %w", err)
	}
	return s, nil
}

// IngestRuns lists recorded loads, newest first. Stores built without
// provenance return an empty list.
func (d *DB) IngestRuns(ctx context.Context) ([]IngestRun, error) {
	ok, err := d.hasTable(ctx, ingestRunsTable)
	if err != nil {
		return nil, fmt.Errorf("inspect store: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var out []IngestRun
	if err := d.db.SelectContext(ctx, &out, `SELECT id, source, loaded_at, samples, cell_counts, populations
		FROM ingest_runs ORDER BY loaded_at DESC, id`); err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	return out, nil
}

func whereClause(expr string) string {
	if strings.TrimSpace(expr) == "" {
		return ""
	}
	return " WHERE " + expr
}
