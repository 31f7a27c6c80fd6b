// Package loader turns a wide cell-count table (one row per sample, one
// column per population) into normalized store records.
package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/cellstat-cli/internal/store"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"gopkg.in/guregu/null.v3"
)

// ErrStoreExists is returned by LoadFile when the target store already
// exists and Overwrite is not set.
var ErrStoreExists = errors.New("store already exists")

// Options controls parsing and loading.
type Options struct {
	// Delimiter for the input. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Populations restricts which columns are treated as cell counts. Empty
	// means every column that is not sample metadata.
	Populations []string
	// Overwrite replaces an existing store in LoadFile.
	Overwrite bool
}

// Result describes a completed load.
type Result struct {
	RunID       string
	Samples     int
	CellCounts  int
	Populations []string
	// Blank count cells are treated as unmeasured and produce no row.
	Blank int
}

// sampleRow is the metadata part of one input row.
type sampleRow struct {
	Project                string `csv:"project"`
	Subject                string `csv:"subject"`
	Condition              string `csv:"condition"`
	Age                    string `csv:"age"`
	Sex                    string `csv:"sex"`
	Treatment              string `csv:"treatment"`
	Response               string `csv:"response"`
	Sample                 string `csv:"sample"`
	SampleType             string `csv:"sample_type"`
	TimeFromTreatmentStart string `csv:"time_from_treatment_start"`
}

var metadataColumns = map[string]bool{
	"project": true, "subject": true, "condition": true, "age": true, "sex": true,
	"treatment": true, "response": true, "sample": true, "sample_type": true,
	"time_from_treatment_start": true,
}

var requiredColumns = []string{"sample", "subject", "project", "condition"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads a wide table and returns one record per row plus the sorted
// population names it recognized.
func Parse(r io.Reader, opt Options) ([]store.Record, []string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}

	rows, err := newReader(b, delim).ReadAll()
	if err != nil {
		return nil, nil, pfx.Err(fmt.Errorf("read table: %w", err))
	}
	if len(rows) == 0 {
		return nil, nil, pfx.Err(errors.New("input has no header row"))
	}
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, pfx.Err(fmt.Errorf("missing required column %q", col))
		}
	}
	pops, err := populationColumns(rows[0], index, opt.Populations)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	var meta []*sampleRow
	if err := gocsv.UnmarshalCSV(newReader(b, delim), &meta); err != nil {
		return nil, nil, pfx.Err(fmt.Errorf("decode sample metadata: %w", err))
	}
	if len(meta) != len(rows)-1 {
		return nil, nil, pfx.Err(fmt.Errorf("decoded %d metadata rows for %d data rows", len(meta), len(rows)-1))
	}

	seen := make(map[string]int, len(meta))
	out := make([]store.Record, 0, len(meta))
	for i, m := range meta {
		line := i + 1
		s, err := m.toSample(line)
		if err != nil {
			return nil, nil, pfx.Err(err)
		}
		if prev, dup := seen[s.Sample]; dup {
			return nil, nil, pfx.Err(fmt.Errorf("row %d: sample %q already defined on row %d", line, s.Sample, prev))
		}
		seen[s.Sample] = line

		rec := store.Record{Sample: s}
		for _, p := range pops {
			raw := strings.TrimSpace(rows[line][index[p]])
			if raw == "" {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, nil, pfx.Err(fmt.Errorf("row %d: %s count %q is not an integer", line, p, raw))
			}
			if n < 0 {
				return nil, nil, pfx.Err(fmt.Errorf("row %d: %s count %d is negative", line, p, n))
			}
			rec.Counts = append(rec.Counts, store.PopulationCount{Population: p, Count: n})
		}
		out = append(out, rec)
	}
	return out, pops, nil
}

// LoadFile creates a store at dbPath from the table at srcPath.
func LoadFile(ctx context.Context, srcPath, dbPath string, opt Options) (*Result, error) {
	if _, err := os.Stat(dbPath); err == nil {
		if !opt.Overwrite {
			return nil, fmt.Errorf("%w at %s (use --force to replace it)", ErrStoreExists, dbPath)
		}
		if err := os.Remove(dbPath); err != nil {
			return nil, fmt.Errorf("remove existing store: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat store: %w", err)
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(srcPath)
	}
	records, pops, err := Parse(f, opt)
	if err != nil {
		return nil, err
	}
	slog.Debug("parsed input", "path", srcPath, "samples", len(records), "populations", len(pops))

	res, err := load(ctx, dbPath, filepath.Base(srcPath), records, pops)
	if err != nil {
		_ = os.Remove(dbPath)
		return nil, err
	}
	return res, nil
}

func load(ctx context.Context, dbPath, source string, records []store.Record, pops []string) (*Result, error) {
	db, err := store.Create(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	res := &Result{RunID: uuid.NewString(), Samples: len(records), Populations: pops}
	for _, r := range records {
		res.CellCounts += len(r.Counts)
	}
	res.Blank = res.Samples*len(pops) - res.CellCounts
	run := store.IngestRun{
		ID:          res.RunID,
		Source:      source,
		LoadedAt:    time.Now().UTC().Format(time.RFC3339),
		Samples:     res.Samples,
		CellCounts:  res.CellCounts,
		Populations: strings.Join(pops, ","),
	}
	if err := db.Ingest(ctx, run, records); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *sampleRow) toSample(line int) (store.Sample, error) {
	s := store.Sample{
		Sample:     strings.TrimSpace(m.Sample),
		Subject:    strings.TrimSpace(m.Subject),
		Project:    strings.TrimSpace(m.Project),
		Condition:  strings.TrimSpace(m.Condition),
		Sex:        optString(m.Sex),
		Treatment:  optString(m.Treatment),
		Response:   optString(m.Response),
		SampleType: optString(m.SampleType),
	}
	for i, v := range []string{s.Sample, s.Subject, s.Project, s.Condition} {
		if v == "" {
			return store.Sample{}, fmt.Errorf("row %d: empty %s", line, requiredColumns[i])
		}
	}
	if age := strings.TrimSpace(m.Age); age != "" {
		n, err := strconv.ParseInt(age, 10, 64)
		if err != nil {
			return store.Sample{}, fmt.Errorf("row %d: age %q is not an integer", line, age)
		}
		s.Age = null.IntFrom(n)
	}
	if tt := strings.TrimSpace(m.TimeFromTreatmentStart); tt != "" {
		x, err := strconv.ParseFloat(tt, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return store.Sample{}, fmt.Errorf("row %d: time_from_treatment_start %q is not a number", line, tt)
		}
		s.TimeFromTreatmentStart = null.IntFrom(int64(x))
	}
	return s, nil
}

func populationColumns(header []string, index map[string]int, want []string) ([]string, error) {
	var pops []string
	if len(want) > 0 {
		for _, p := range want {
			p = strings.TrimSpace(p)
			if _, ok := index[p]; !ok {
				return nil, fmt.Errorf("population column %q not found", p)
			}
			if metadataColumns[p] {
				return nil, fmt.Errorf("%q is a metadata column, not a population", p)
			}
			pops = append(pops, p)
		}
	} else {
		for _, h := range header {
			h = strings.TrimSpace(h)
			if h != "" && !metadataColumns[h] {
				pops = append(pops, h)
			}
		}
	}
	if len(pops) == 0 {
		return nil, errors.New("no population columns found")
	}
	sort.Strings(pops)
	return pops, nil
}

func optString(s string) null.String {
	s = strings.TrimSpace(s)
	return null.NewString(s, s != "")
}

func newReader(b []byte, delim rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = delim
	r.TrimLeadingSpace = true
	return r
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
