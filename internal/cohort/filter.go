// Package cohort describes the subset of samples an analysis runs on.
//
// A Filter is a set of equality constraints over sample metadata. Unset
// fields do not constrain; set fields are AND-combined.
package cohort

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names a sample metadata column that can be filtered or grouped on.
type Field string

const (
	Condition              Field = "condition"
	SampleType             Field = "sample_type"
	Treatment              Field = "treatment"
	TimeFromTreatmentStart Field = "time_from_treatment_start"
	Response               Field = "response"
	Sex                    Field = "sex"
	Project                Field = "project" // groupable, not filterable
)

// Fields lists the filterable fields in rendering order.
var Fields = []Field{Condition, SampleType, Treatment, TimeFromTreatmentStart, Response, Sex}

var aliases = map[string]Field{
	"time":      TimeFromTreatmentStart,
	"timepoint": TimeFromTreatmentStart,
	"type":      SampleType,
	"gender":    Sex,
}

// Groupable reports whether f may be used in a GROUP BY over samples.
func (f Field) Groupable() bool {
	switch f {
	case Condition, SampleType, Treatment, TimeFromTreatmentStart, Response, Sex, Project:
		return true
	}
	return false
}

// ParseField resolves a user-supplied key to a filterable Field.
func ParseField(key string) (Field, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if f, ok := aliases[k]; ok {
		return f, nil
	}
	for _, f := range Fields {
		if string(f) == k {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown cohort field %q (use one of %s)", key, fieldList())
}

func fieldList() string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Filter is a caller-supplied cohort definition.
type Filter struct {
	Condition              string `mapstructure:"condition" yaml:"condition,omitempty" json:"condition,omitempty"`
	SampleType             string `mapstructure:"sample_type" yaml:"sample_type,omitempty" json:"sample_type,omitempty"`
	Treatment              string `mapstructure:"treatment" yaml:"treatment,omitempty" json:"treatment,omitempty"`
	TimeFromTreatmentStart *int   `mapstructure:"time_from_treatment_start" yaml:"time_from_treatment_start,omitempty" json:"time_from_treatment_start,omitempty"`
	Response               string `mapstructure:"response" yaml:"response,omitempty" json:"response,omitempty"`
	Sex                    string `mapstructure:"sex" yaml:"sex,omitempty" json:"sex,omitempty"`
}

// Parse builds a Filter from "key=value" assignments.
func Parse(assignments []string) (Filter, error) {
	var f Filter
	for _, a := range assignments {
		key, val, ok := strings.Cut(a, "=")
		if !ok {
			return Filter{}, fmt.Errorf("invalid cohort filter %q: expected key=value", a)
		}
		if err := f.Set(key, val); err != nil {
			return Filter{}, err
		}
	}
	return f, nil
}

// Set assigns a single field by name.
func (f *Filter) Set(key, value string) error {
	field, err := ParseField(key)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("empty value for cohort field %s", field)
	}
	switch field {
	case Condition:
		f.Condition = value
	case SampleType:
		f.SampleType = value
	case Treatment:
		f.Treatment = value
	case TimeFromTreatmentStart:
		t, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: must be an integer", field, value)
		}
		f.TimeFromTreatmentStart = &t
	case Response:
		f.Response = value
	case Sex:
		f.Sex = value
	}
	return nil
}

// IsEmpty reports whether the filter selects every sample.
func (f Filter) IsEmpty() bool {
	return len(f.predicates()) == 0
}

// Baseline returns a copy of f restricted to time_from_treatment_start = 0.
func (f Filter) Baseline() Filter {
	zero := 0
	out := f.clone()
	out.TimeFromTreatmentStart = &zero
	return out
}

// Intersect combines two filters. ok is false when they constrain the same
// field to different values, in which case no sample can match.
func (f Filter) Intersect(g Filter) (out Filter, ok bool) {
	out = f.clone()
	for _, p := range g.predicates() {
		if cur, set := out.value(p.field); set && cur != p.value {
			return Filter{}, false
		}
		// values were validated when g was built
		_ = out.Set(string(p.field), fmt.Sprint(p.value))
	}
	return out, true
}

// Where renders the filter as a SQL boolean expression over the given table
// alias. An empty filter renders as "" with no args.
func (f Filter) Where(alias string) (string, []any) {
	preds := f.predicates()
	if len(preds) == 0 {
		return "", nil
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for _, p := range preds {
		clauses = append(clauses, prefix+string(p.field)+" = ?")
		args = append(args, p.value)
	}
	return strings.Join(clauses, " AND "), args
}

func (f Filter) String() string {
	preds := f.predicates()
	if len(preds) == 0 {
		return "(all samples)"
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = fmt.Sprintf("%s=%v", p.field, p.value)
	}
	return strings.Join(parts, ", ")
}

type predicate struct {
	field Field
	value any
}

func (f Filter) predicates() []predicate {
	var out []predicate
	for _, field := range Fields {
		if v, ok := f.value(field); ok {
			out = append(out, predicate{field: field, value: v})
		}
	}
	return out
}

func (f Filter) value(field Field) (any, bool) {
	switch field {
	case Condition:
		return f.Condition, f.Condition != ""
	case SampleType:
		return f.SampleType, f.SampleType != ""
	case Treatment:
		return f.Treatment, f.Treatment != ""
	case TimeFromTreatmentStart:
		if f.TimeFromTreatmentStart == nil {
			return nil, false
		}
		return *f.TimeFromTreatmentStart, true
	case Response:
		return f.Response, f.Response != ""
	case Sex:
		return f.Sex, f.Sex != ""
	}
	return nil, false
}

func (f Filter) clone() Filter {
	out := f
	if f.TimeFromTreatmentStart != nil {
		t := *f.TimeFromTreatmentStart
		out.TimeFromTreatmentStart = &t
	}
	return out
}
