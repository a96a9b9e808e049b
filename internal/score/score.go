package score

// Rating is the discrete four-level quality label attached to a metric.
type Rating int

// Ratings in ascending order.
const (
	Poor Rating = iota
	Fair
	Good
	Excellent
)

// ratingScores maps each rating to its fixed numeric contribution for
// composite blending. The mapping is load-bearing for report compatibility
// and must not change.
var ratingScores = [...]float64{
	Poor:      40,
	Fair:      60,
	Good:      80,
	Excellent: 100,
}

func (r Rating) String() string {
	switch r {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Fair:
		return "Fair"
	default:
		return "Poor"
	}
}

// Score returns the fixed 40/60/80/100 numeric value for the rating.
func (r Rating) Score() float64 {
	if r < Poor || r > Excellent {
		return ratingScores[Poor]
	}
	return ratingScores[r]
}

// Kind identifies which threshold table applies to a metric.
type Kind int

const (
	KindCPU     Kind = iota // sysbench events/sec
	KindMemory              // MiB/s
	KindDisk                // MB/s
	KindNetwork             // MB/s
	KindLoad                // load1 / cores, lower is better
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindMemory:
		return "memory"
	case KindDisk:
		return "disk"
	case KindNetwork:
		return "network"
	case KindLoad:
		return "load"
	default:
		return "unknown"
	}
}

// cuts holds the ascending rating cut points for a higher-is-better metric:
// value > excellent → Excellent, value ≥ good → Good, value ≥ fair → Fair.
// Excellent is deliberately strict (>) while Good and Fair are inclusive (≥).
type cuts struct {
	excellent, good, fair float64
}

var ratingCuts = map[Kind]cuts{
	KindCPU:     {excellent: 8000, good: 5000, fair: 2500},
	KindMemory:  {excellent: 20000, good: 10000, fair: 5000},
	KindDisk:    {excellent: 500, good: 300, fair: 100},
	KindNetwork: {excellent: 20, good: 10, fair: 5},
}

// Load-ratio cut points. Lower is better: value ≤ cut qualifies.
const (
	loadExcellent = 0.50
	loadGood      = 0.90
	loadFair      = 1.20
)

// Rate maps a raw metric value to its discrete rating using the threshold
// table for kind. The value is the raw aggregate (events/sec, MB/s, load
// ratio) — not the normalized 0–100 score.
func Rate(kind Kind, value float64) Rating {
	if kind == KindLoad {
		switch {
		case value <= loadExcellent:
			return Excellent
		case value <= loadGood:
			return Good
		case value <= loadFair:
			return Fair
		default:
			return Poor
		}
	}

	c := ratingCuts[kind]
	switch {
	case value > c.excellent:
		return Excellent
	case value >= c.good:
		return Good
	case value >= c.fair:
		return Fair
	default:
		return Poor
	}
}

// Normalize maps value onto a continuous 0–100 scale against a reference
// ceiling. Values at or above the ceiling saturate at 100; values at or
// below zero floor at 0.
func Normalize(value, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	return clamp(value/ceiling*100, 0, 100)
}

// NormalizeInverted is the lower-is-better variant used for the load ratio:
// a value of 0 scores 100, a value at the ceiling scores 0.
func NormalizeInverted(value, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	return clamp((1-value/ceiling)*100, 0, 100)
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
