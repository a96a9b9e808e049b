// Package score turns raw benchmark samples into scores and verdicts.
//
// aggregate.go reduces a probe's sample set to a median and a coefficient
// of variation. score.go maps an aggregated value onto two independent
// representations: a continuous 0–100 scale against a reference ceiling
// (Normalize), and a discrete four-level rating via per-metric threshold
// tables (Rate). Both representations are kept; the composite power score
// blends only the discrete rating scores.
//
// composite.go computes the weighted power score (weights sum to 1.0) and
// the final verdict: Excellent ≥85, Strong ≥70, Moderate ≥55, Weak below.
// issues.go collects advisory flags (slow disk, noisy measurements, high
// load) that never affect the score itself.
//
// Everything in this package is pure computation with no I/O, so the whole
// engine is testable with synthetic sample sets.
package score
