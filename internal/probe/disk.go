package probe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/powerbench/powerbench/internal/sampler"
)

// DiskParams tunes the dd-based disk probes.
type DiskParams struct {
	// Path is the scratch file written and read by the probes.
	Path string `mapstructure:"path"`

	// SizeMB is the amount of data transferred per trial, in 1 MiB blocks.
	SizeMB int `mapstructure:"size_mb"`
}

// DecodeDiskParams fills defaults and overlays the raw config map.
func DecodeDiskParams(raw map[string]any) (DiskParams, error) {
	p := DiskParams{Path: "/tmp/powerbench.scratch", SizeMB: 1024}
	if err := mapstructure.Decode(raw, &p); err != nil {
		return DiskParams{}, fmt.Errorf("probe: disk params: %w", err)
	}
	return p, nil
}

// DiskWriteTrial returns a trial that writes the scratch file with dd,
// forcing data to disk with fdatasync, and reports MB/s.
func DiskWriteTrial(r Runner, p DiskParams) sampler.Trial {
	cmd := fmt.Sprintf("dd if=/dev/zero of=%s bs=1M count=%d conv=fdatasync 2>&1", p.Path, p.SizeMB)
	return func(ctx context.Context) (float64, error) {
		out, err := r.Run(ctx, cmd)
		if err != nil {
			return 0, fmt.Errorf("probe: dd write: %w (output: %s)", err, firstLine(out))
		}
		return ParseDDThroughput(string(out))
	}
}

// DiskReadTrial returns a trial that reads the scratch file back with
// O_DIRECT (bypassing the page cache) and reports MB/s. The scratch file
// is created first if a write trial has not already left one behind.
func DiskReadTrial(r Runner, p DiskParams) sampler.Trial {
	cmd := fmt.Sprintf(
		"[ -f %[1]s ] || dd if=/dev/zero of=%[1]s bs=1M count=%[2]d conv=fdatasync >/dev/null 2>&1; dd if=%[1]s of=/dev/null bs=1M iflag=direct 2>&1",
		p.Path, p.SizeMB)
	return func(ctx context.Context) (float64, error) {
		out, err := r.Run(ctx, cmd)
		if err != nil {
			return 0, fmt.Errorf("probe: dd read: %w (output: %s)", err, firstLine(out))
		}
		return ParseDDThroughput(string(out))
	}
}

// DiskCleanup removes the scratch file. Best effort — a leftover scratch
// file is harmless and the next run truncates it anyway.
func DiskCleanup(ctx context.Context, r Runner, p DiskParams) {
	_, _ = r.Run(ctx, "rm -f "+p.Path)
}

// ddRateRe matches the throughput figure in dd's transfer summary, e.g.
// "1073741824 bytes (1.1 GB, 1.0 GiB) copied, 1.50088 s, 715 MB/s".
var ddRateRe = regexp.MustCompile(`([0-9.]+)\s*(kB|MB|GB)/s`)

// ParseDDThroughput extracts the transfer rate from dd output in MB/s.
// dd prints decimal units (1 MB = 10^6 bytes); kB/s and GB/s figures are
// converted to MB/s.
func ParseDDThroughput(out string) (float64, error) {
	m := ddRateRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("probe: no throughput figure in dd output %q", firstLine([]byte(out)))
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("probe: parse dd rate %q: %w", m[1], err)
	}
	switch strings.ToLower(m[2]) {
	case "kb":
		v /= 1000
	case "gb":
		v *= 1000
	}
	return v, nil
}
