package store

import (
	"gopkg.in/guregu/null.v3"
)

// UnknownLabel replaces NULL or empty metadata labels in grouped counts.
const UnknownLabel = "unknown"

// Sample is one row of the samples relation.
type Sample struct {
	ID                     int64       `db:"id" json:"id"`
	Sample                 string      `db:"sample" json:"sample"`
	Subject                string      `db:"subject" json:"subject"`
	Project                string      `db:"project" json:"project"`
	Condition              string      `db:"condition" json:"condition"`
	Age                    null.Int    `db:"age" json:"age"`
	Sex                    null.String `db:"sex" json:"sex"`
	Treatment              null.String `db:"treatment" json:"treatment"`
	Response               null.String `db:"response" json:"response"`
	SampleType             null.String `db:"sample_type" json:"sample_type"`
	TimeFromTreatmentStart null.Int    `db:"time_from_treatment_start" json:"time_from_treatment_start"`
}

// Measurement is a cell count joined with its sample's metadata.
type Measurement struct {
	Sample
	Population string `db:"population"`
	Count      int64  `db:"count"`
}

// GroupCount is one bucket of a GROUP BY over samples.
type GroupCount struct {
	Label string `db:"label" json:"label"`
	Count int    `db:"n" json:"count"`
}

// PopulationCount is a raw count waiting to be inserted for a sample.
type PopulationCount struct {
	Population string
	Count      int64
}

// Record is a sample with all of its counts, as produced by the loader.
type Record struct {
	Sample Sample
	Counts []PopulationCount
}

// IngestRun records one load of the store.
type IngestRun struct {
	ID          string `db:"id" json:"id"`
	Source      string `db:"source" json:"source"`
	LoadedAt    string `db:"loaded_at" json:"loaded_at"`
	Samples     int    `db:"samples" json:"samples"`
	CellCounts  int    `db:"cell_counts" json:"cell_counts"`
	Populations string `db:"populations" json:"populations"`
}

// Stats summarizes relation sizes.
type Stats struct {
	Samples     int `db:"samples" json:"samples"`
	CellCounts  int `db:"cell_counts" json:"cell_counts"`
	Populations int `db:"populations" json:"populations"`
}
