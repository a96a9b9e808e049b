package probe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/powerbench/powerbench/internal/sampler"
)

// node_exporter metric names used by the load probe.
const (
	nodeLoad1      = "node_load1"
	nodeCPUSeconds = "node_cpu_seconds_total"
)

// LoadRatioTrial returns a trial reporting the 1-minute load average
// divided by the core count, read from the target's /proc files. A ratio
// of 1.0 means every core is fully busy on average.
func LoadRatioTrial(fr FileReader) sampler.Trial {
	return func(ctx context.Context) (float64, error) {
		load1, err := readLoad1(ctx, fr)
		if err != nil {
			return 0, err
		}
		cores, err := CoreCount(ctx, fr)
		if err != nil {
			return 0, err
		}
		return load1 / float64(cores), nil
	}
}

// readLoad1 parses the first field of /proc/loadavg.
func readLoad1(ctx context.Context, fr FileReader) (float64, error) {
	data, err := fr.ReadFile(ctx, "/proc/loadavg")
	if err != nil {
		return 0, fmt.Errorf("probe: read loadavg: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("probe: empty loadavg")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("probe: parse loadavg %q: %w", fields[0], err)
	}
	return v, nil
}

// CoreCount counts processor entries in the target's /proc/cpuinfo.
func CoreCount(ctx context.Context, fr FileReader) (int, error) {
	data, err := fr.ReadFile(ctx, "/proc/cpuinfo")
	if err != nil {
		return 0, fmt.Errorf("probe: read cpuinfo: %w", err)
	}
	var cores int
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "processor") {
			cores++
		}
	}
	if cores == 0 {
		return 0, fmt.Errorf("probe: no processors found in cpuinfo")
	}
	return cores, nil
}

// NodeExporterLoadTrial returns a trial reporting load1/cores scraped from
// a node_exporter metrics endpoint in Prometheus text exposition format.
// Used when the host already runs node_exporter and shelling out is
// undesirable.
func NodeExporterLoadTrial(client *http.Client, endpoint string) sampler.Trial {
	return func(ctx context.Context) (float64, error) {
		mfs, err := fetchMetricFamilies(ctx, client, endpoint)
		if err != nil {
			return 0, err
		}

		load1, ok := gaugeValue(mfs[nodeLoad1])
		if !ok {
			return 0, fmt.Errorf("probe: %s missing from %s", nodeLoad1, endpoint)
		}
		cores := cpuLabelCount(mfs[nodeCPUSeconds])
		if cores == 0 {
			return 0, fmt.Errorf("probe: %s missing from %s", nodeCPUSeconds, endpoint)
		}

		return load1 / float64(cores), nil
	}
}

// fetchMetricFamilies GETs a metrics endpoint and parses the exposition.
func fetchMetricFamilies(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("probe: build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe: scrape %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("probe: scrape %s: unexpected status %d", url, resp.StatusCode)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("probe: parse metrics from %s: %w", url, err)
	}
	return mfs, nil
}

// gaugeValue returns the first gauge or untyped value in a family.
func gaugeValue(mf *dto.MetricFamily) (float64, bool) {
	if mf == nil {
		return 0, false
	}
	for _, m := range mf.GetMetric() {
		switch {
		case m.Gauge != nil:
			return m.Gauge.GetValue(), true
		case m.Untyped != nil:
			return m.Untyped.GetValue(), true
		}
	}
	return 0, false
}

// cpuLabelCount counts distinct "cpu" label values in a family. Applied to
// node_cpu_seconds_total this yields the core count.
func cpuLabelCount(mf *dto.MetricFamily) int {
	if mf == nil {
		return 0
	}
	seen := make(map[string]struct{})
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "cpu" {
				seen[lp.GetValue()] = struct{}{}
			}
		}
	}
	return len(seen)
}
