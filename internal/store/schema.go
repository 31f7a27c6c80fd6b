package store

// Schema creates the normalized relations. samples and cell_counts are
// required by the analytics path; ingest_runs is provenance only.
const Schema = `
CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY,
	sample TEXT NOT NULL UNIQUE,
	subject TEXT NOT NULL,
	project TEXT NOT NULL,
	condition TEXT NOT NULL,
	age INTEGER,
	sex TEXT,
	treatment TEXT,
	response TEXT,
	sample_type TEXT,
	time_from_treatment_start INTEGER
);

CREATE TABLE IF NOT EXISTS cell_counts (
	id INTEGER PRIMARY KEY,
	sample_id INTEGER NOT NULL,
	population TEXT NOT NULL,
	count INTEGER NOT NULL CHECK (count >= 0),
	UNIQUE (sample_id, population),
	FOREIGN KEY (sample_id) REFERENCES samples(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cell_counts_population ON cell_counts(population);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	loaded_at TEXT NOT NULL,
	samples INTEGER NOT NULL,
	cell_counts INTEGER NOT NULL,
	populations TEXT NOT NULL
);
`

const (
	samplesTable    = "samples"
	cellCountsTable = "cell_counts"
	ingestRunsTable = "ingest_runs"
)

// RequiredRelations must exist for a store to be analyzable.
var RequiredRelations = []string{samplesTable, cellCountsTable}
