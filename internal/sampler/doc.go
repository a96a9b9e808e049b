// Package sampler runs a probe trial callback a fixed number of times and
// collects the resulting sample set.
//
// The policy is fail-soft: a trial that errors, times out, or returns a
// negative value records an observation of 0 instead of aborting the run.
// A degraded report is always preferred over a crashed one. Each trial is
// bounded by a per-trial timeout; a trial that ignores its context is
// abandoned (its goroutine is left to finish) and the run moves on.
package sampler
