package probe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/mitchellh/mapstructure"

	"github.com/powerbench/powerbench/internal/sampler"
)

// minSysbenchVersion is the oldest sysbench whose output format we parse.
// The 0.x series prints "events per second" differently.
var minSysbenchVersion = goversion.Must(goversion.NewVersion("1.0.0"))

// CPUParams tunes the sysbench cpu probe.
type CPUParams struct {
	Threads  int `mapstructure:"threads"`   // 0 = one per core
	MaxPrime int `mapstructure:"max_prime"` // prime ceiling for the workload
	Seconds  int `mapstructure:"seconds"`   // run duration per trial
}

// MemoryParams tunes the sysbench memory probe.
type MemoryParams struct {
	Threads    int    `mapstructure:"threads"`
	BlockSize  string `mapstructure:"block_size"`
	TotalSize  string `mapstructure:"total_size"`
	Seconds    int    `mapstructure:"seconds"`
	Operation  string `mapstructure:"operation"`   // read | write
	AccessMode string `mapstructure:"access_mode"` // seq | rnd
}

// DecodeCPUParams fills defaults and overlays the raw config map.
func DecodeCPUParams(raw map[string]any) (CPUParams, error) {
	p := CPUParams{MaxPrime: 20000, Seconds: 10}
	if err := mapstructure.Decode(raw, &p); err != nil {
		return CPUParams{}, fmt.Errorf("probe: cpu params: %w", err)
	}
	return p, nil
}

// DecodeMemoryParams fills defaults and overlays the raw config map.
func DecodeMemoryParams(raw map[string]any) (MemoryParams, error) {
	p := MemoryParams{
		BlockSize:  "1M",
		TotalSize:  "20G",
		Seconds:    10,
		Operation:  "write",
		AccessMode: "seq",
	}
	if err := mapstructure.Decode(raw, &p); err != nil {
		return MemoryParams{}, fmt.Errorf("probe: memory params: %w", err)
	}
	return p, nil
}

// SysbenchPreflight verifies that sysbench exists on the target and is new
// enough for the output format we parse. The caller degrades the affected
// probes rather than aborting the run when this fails.
func SysbenchPreflight(ctx context.Context, r Runner) error {
	out, err := r.Run(ctx, "sysbench --version")
	if err != nil {
		return fmt.Errorf("probe: sysbench not available: %w", err)
	}
	v, err := parseSysbenchVersion(string(out))
	if err != nil {
		return err
	}
	if v.LessThan(minSysbenchVersion) {
		return fmt.Errorf("probe: sysbench %s is too old, need >= %s", v, minSysbenchVersion)
	}
	return nil
}

// parseSysbenchVersion extracts the version from "sysbench 1.0.20 ..." output.
func parseSysbenchVersion(out string) (*goversion.Version, error) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) < 2 || fields[0] != "sysbench" {
		return nil, fmt.Errorf("probe: unrecognized sysbench version output %q", strings.TrimSpace(out))
	}
	v, err := goversion.NewVersion(fields[1])
	if err != nil {
		return nil, fmt.Errorf("probe: parse sysbench version %q: %w", fields[1], err)
	}
	return v, nil
}

// CPUTrial returns a trial that runs sysbench cpu and reports events/sec
// aggregated across all threads.
func CPUTrial(r Runner, p CPUParams) sampler.Trial {
	cmd := fmt.Sprintf("sysbench cpu --cpu-max-prime=%d --time=%d", p.MaxPrime, p.Seconds)
	if p.Threads > 0 {
		cmd += fmt.Sprintf(" --threads=%d", p.Threads)
	} else {
		cmd += " --threads=$(nproc)"
	}
	cmd += " run"

	return func(ctx context.Context) (float64, error) {
		out, err := r.Run(ctx, cmd)
		if err != nil {
			return 0, fmt.Errorf("probe: sysbench cpu: %w (output: %s)", err, firstLine(out))
		}
		return ParseEventsPerSec(string(out))
	}
}

// MemoryTrial returns a trial that runs sysbench memory and reports MiB/s.
func MemoryTrial(r Runner, p MemoryParams) sampler.Trial {
	cmd := fmt.Sprintf(
		"sysbench memory --memory-block-size=%s --memory-total-size=%s --memory-oper=%s --memory-access-mode=%s --time=%d",
		p.BlockSize, p.TotalSize, p.Operation, p.AccessMode, p.Seconds)
	if p.Threads > 0 {
		cmd += fmt.Sprintf(" --threads=%d", p.Threads)
	}
	cmd += " run"

	return func(ctx context.Context) (float64, error) {
		out, err := r.Run(ctx, cmd)
		if err != nil {
			return 0, fmt.Errorf("probe: sysbench memory: %w (output: %s)", err, firstLine(out))
		}
		return ParseMiBPerSec(string(out))
	}
}

var (
	eventsPerSecRe = regexp.MustCompile(`events per second:\s*([0-9.]+)`)
	mibPerSecRe    = regexp.MustCompile(`\(([0-9.]+)\s*MiB/sec\)`)
)

// ParseEventsPerSec extracts the "events per second" figure from sysbench
// cpu output.
func ParseEventsPerSec(out string) (float64, error) {
	m := eventsPerSecRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("probe: no events-per-second line in sysbench output")
	}
	return strconv.ParseFloat(m[1], 64)
}

// ParseMiBPerSec extracts the "(N MiB/sec)" transfer rate from sysbench
// memory output.
func ParseMiBPerSec(out string) (float64, error) {
	m := mibPerSecRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("probe: no MiB/sec figure in sysbench output")
	}
	return strconv.ParseFloat(m[1], 64)
}

// firstLine trims command output down to its first line for error messages.
func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
