package score

import (
	"errors"
	"math"
	"sort"
)

// ErrNoSamples is returned when an aggregate is requested for an empty
// sample set. "Never measured" must stay distinguishable from "measured
// zero performance", so this is a hard error rather than a silent 0.
var ErrNoSamples = errors.New("score: no samples")

// Aggregate summarises one probe's sample set for a single run.
type Aggregate struct {
	// Median of all observations, including fail-soft zeros.
	Median float64

	// CVPct is the coefficient of variation (sample stdev / mean × 100).
	// It describes measurement noise only — it never feeds the score.
	CVPct float64

	// Trials is the number of observations collected.
	Trials int

	// Failures counts trials that produced a fail-soft zero observation.
	Failures int
}

// NewAggregate reduces a sample set to its Aggregate.
func NewAggregate(samples []float64) (Aggregate, error) {
	med, err := Median(samples)
	if err != nil {
		return Aggregate{}, err
	}
	cv, err := CoefficientOfVariation(samples)
	if err != nil {
		return Aggregate{}, err
	}

	var failures int
	for _, s := range samples {
		if s == 0 {
			failures++
		}
	}

	return Aggregate{
		Median:   med,
		CVPct:    cv,
		Trials:   len(samples),
		Failures: failures,
	}, nil
}

// Median returns the standard median of values: the middle element after
// sorting, or the mean of the two central elements for even lengths.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoSamples
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// CoefficientOfVariation returns the sample standard deviation divided by
// the mean, as a percentage. Fewer than two values or a zero mean yield 0 —
// there is no meaningful spread to report in either case.
func CoefficientOfVariation(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoSamples
	}
	if len(values) < 2 {
		return 0, nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0, nil
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stdev := math.Sqrt(sq / float64(len(values)-1))

	return stdev / mean * 100, nil
}
