package score

import (
	"fmt"
	"math"
)

// weightTolerance is the permitted deviation of the weight sum from 1.0.
const weightTolerance = 1e-6

// Verdict labels returned by VerdictFor.
const (
	VerdictExcellent = "Excellent / Workstation Class"
	VerdictStrong    = "Strong / Good"
	VerdictModerate  = "Moderate / Fair"
	VerdictWeak      = "Weak / Poor"
)

// Verdict thresholds on the composite power score.
const (
	thresholdExcellent = 85.0
	thresholdStrong    = 70.0
	thresholdModerate  = 55.0
)

// gateMinScore is the minimum power score for the strict keep/buy gate.
const gateMinScore = 75.0

// Weights is the blend vector for the composite power score.
// The five weights must sum to 1.0 within weightTolerance.
type Weights struct {
	CPU       float64 `yaml:"cpu"`
	Memory    float64 `yaml:"memory"`
	Disk      float64 `yaml:"disk"`
	Network   float64 `yaml:"network"`
	Stability float64 `yaml:"stability"`
}

// DefaultWeights is the canonical blend vector:
// CPU 0.35, Memory 0.15, Disk 0.25, Network 0.10, Stability 0.15.
func DefaultWeights() Weights {
	return Weights{CPU: 0.35, Memory: 0.15, Disk: 0.25, Network: 0.10, Stability: 0.15}
}

// Validate checks that all weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"cpu": w.CPU, "memory": w.Memory, "disk": w.Disk,
		"network": w.Network, "stability": w.Stability,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %v", name, v)
		}
	}
	sum := w.CPU + w.Memory + w.Disk + w.Network + w.Stability
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights sum to %v, want 1.0", sum)
	}
	return nil
}

// Ratings holds the five discrete sub-ratings that feed the composite score.
type Ratings struct {
	CPU       Rating
	Memory    Rating
	Disk      Rating
	Network   Rating
	Stability Rating
}

// Composite blends the five rating scores into the 0–100 power score.
// Inputs are the discrete 40/60/80/100 rating scores, not the continuous
// normalized scores.
func Composite(r Ratings, w Weights) float64 {
	return r.CPU.Score()*w.CPU +
		r.Memory.Score()*w.Memory +
		r.Disk.Score()*w.Disk +
		r.Network.Score()*w.Network +
		r.Stability.Score()*w.Stability
}

// VerdictFor maps a power score onto the final qualitative verdict.
func VerdictFor(power float64) string {
	switch {
	case power >= thresholdExcellent:
		return VerdictExcellent
	case power >= thresholdStrong:
		return VerdictStrong
	case power >= thresholdModerate:
		return VerdictModerate
	default:
		return VerdictWeak
	}
}

// Gate is the strict keep/buy decision used alongside the four-level
// verdict: it passes only when every sub-rating is Good or better AND the
// power score reaches 75.
func Gate(r Ratings, power float64) bool {
	for _, rating := range []Rating{r.CPU, r.Memory, r.Disk, r.Network, r.Stability} {
		if rating < Good {
			return false
		}
	}
	return power >= gateMinScore
}
