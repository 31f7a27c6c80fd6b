package store

import (
	"context"
	"fmt"
	"log/slog"
)

const insertSample = `INSERT INTO samples (
	sample, subject, project, condition, age, sex, treatment,
	response, sample_type, time_from_treatment_start
) VALUES (
	:sample, :subject, :project, :condition, :age, :sex, :treatment,
	:response, :sample_type, :time_from_treatment_start
)`

const insertCellCount = `INSERT INTO cell_counts (sample_id, population, count) VALUES (?, ?, ?)`

const insertIngestRun = `INSERT INTO ingest_runs (id, source, loaded_at, samples, cell_counts, populations)
VALUES (:id, :source, :loaded_at, :samples, :cell_counts, :populations)`

// Ingest writes records and the run describing them in a single transaction.
// Sample IDs are assigned by the store; any ID on the input is ignored.
func (d *DB) Ingest(ctx context.Context, run IngestRun, records []Record) (err error) {
	if d.readOnly {
		return ErrReadOnly
	}
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, rec := range records {
		res, err := tx.NamedExecContext(ctx, insertSample, rec.Sample)
		if err != nil {
			return fmt.Errorf("insert sample %q (record %d): %w", rec.Sample.Sample, i+1, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sample id for %q: %w", rec.Sample.Sample, err)
		}
		for _, c := range rec.Counts {
			if _, err := tx.ExecContext(ctx, insertCellCount, id, c.Population, c.Count); err != nil {
				return fmt.Errorf("insert %s count for %q: %w", c.Population, rec.Sample.Sample, err)
			}
		}
	}
	if _, err := tx.NamedExecContext(ctx, insertIngestRun, run); err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest: %w", err)
	}
	slog.Debug("ingested records", "path", d.path, "run", run.ID, "samples", run.Samples, "cell_counts", run.CellCounts)
	return nil
}
