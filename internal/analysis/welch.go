package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultAlpha is the significance threshold used when none is configured.
const DefaultAlpha = 0.05

// TTest is the result of a two-sided Welch t-test.
type TTest struct {
	T  float64
	DF float64
	P  float64
}

// WelchTTest compares the means of a and b without assuming equal variances.
func WelchTTest(a, b []float64) (TTest, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTest{}, ErrInsufficientData
	}
	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)
	return WelchFromSummary(m1, v1, len(a), m2, v2, len(b))
}

// WelchFromSummary runs the test from group means, unbiased variances and
// sizes. Degrees of freedom follow Welch-Satterthwaite.
func WelchFromSummary(m1, v1 float64, n1 int, m2, v2 float64, n2 int) (TTest, error) {
	if n1 < 2 || n2 < 2 {
		return TTest{}, ErrInsufficientData
	}
	a := v1 / float64(n1)
	b := v2 / float64(n2)
	se2 := a + b
	if se2 <= 0 {
		return TTest{}, ErrZeroVariance
	}
	t := (m1 - m2) / math.Sqrt(se2)
	df := se2 * se2 / (a*a/float64(n1-1) + b*b/float64(n2-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))
	if p > 1 {
		p = 1
	}
	return TTest{T: t, DF: df, P: p}, nil
}
