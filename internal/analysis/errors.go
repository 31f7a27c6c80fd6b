package analysis

import "errors"

var (
	// ErrNoData means the requested population or subgroup does not occur in
	// the cohort.
	ErrNoData = errors.New("no data")
	// ErrInsufficientData means a group is too small to estimate a variance.
	ErrInsufficientData = errors.New("insufficient data: each group needs at least 2 samples")
	// ErrZeroVariance means both groups have identical values, so the
	// standard error is 0 and the t statistic is undefined.
	ErrZeroVariance = errors.New("zero variance in both groups")
)

// Outcome classifies an analysis result.
type Outcome string

const (
	OutcomeTested           Outcome = "tested"
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeZeroVariance     Outcome = "zero_variance"
	OutcomeNoData           Outcome = "no_data"
	// OutcomeComputed marks a descriptive result that needed no test.
	OutcomeComputed Outcome = "computed"
)

// Err maps an outcome to its sentinel error, or nil for computed outcomes.
func (o Outcome) Err() error {
	switch o {
	case OutcomeInsufficientData:
		return ErrInsufficientData
	case OutcomeZeroVariance:
		return ErrZeroVariance
	case OutcomeNoData:
		return ErrNoData
	}
	return nil
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeTested
	case errors.Is(err, ErrZeroVariance):
		return OutcomeZeroVariance
	case errors.Is(err, ErrNoData):
		return OutcomeNoData
	default:
		return OutcomeInsufficientData
	}
}
