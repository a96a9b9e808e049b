package sampler

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single trial when no explicit timeout is set.
const DefaultTimeout = 120 * time.Second

// Trial is one probe invocation. It returns a single non-negative
// observation (events/sec, MB/s, load ratio) or an error.
type Trial func(ctx context.Context) (float64, error)

// Options controls how a sample set is collected.
type Options struct {
	// Trials is the number of times the trial callback runs. Values below 1
	// are raised to 1 so every probe yields at least one observation.
	Trials int

	// Timeout bounds each individual trial. Zero means DefaultTimeout.
	Timeout time.Duration

	// OnTrial, when set, is called after every trial with the probe name,
	// the 1-based trial index and the recorded observation. Used for
	// progress reporting.
	OnTrial func(name string, trial int, value float64)
}

// Collect runs trial Options.Trials times and returns the sample set.
// The returned slice always has length ≥ 1. Failed trials contribute a 0
// observation; they never abort the run.
func Collect(ctx context.Context, name string, trial Trial, opts Options) []float64 {
	n := opts.Trials
	if n < 1 {
		n = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	samples := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		v := runOne(ctx, name, i, trial, timeout)
		samples = append(samples, v)
		if opts.OnTrial != nil {
			opts.OnTrial(name, i, v)
		}
		if ctx.Err() != nil {
			// Parent cancelled: record zeros for the remaining trials so the
			// sample-set length still matches the configured trial count.
			for j := i + 1; j <= n; j++ {
				samples = append(samples, 0)
				if opts.OnTrial != nil {
					opts.OnTrial(name, j, 0)
				}
			}
			break
		}
	}
	return samples
}

// runOne executes a single trial under its own timeout. The trial runs in a
// goroutine so a callback that ignores its context cannot stall the run.
func runOne(ctx context.Context, name string, idx int, trial Trial, timeout time.Duration) float64 {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value float64
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := trial(tctx)
		done <- outcome{v, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			slog.Warn("sampler: trial failed, recording 0",
				"probe", name, "trial", idx, "err", out.err)
			return 0
		}
		if out.value < 0 {
			slog.Warn("sampler: trial returned negative value, recording 0",
				"probe", name, "trial", idx, "value", out.value)
			return 0
		}
		return out.value
	case <-tctx.Done():
		slog.Warn("sampler: trial timed out, recording 0",
			"probe", name, "trial", idx, "timeout", timeout)
		return 0
	}
}
