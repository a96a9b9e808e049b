package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/powerbench/powerbench/internal/sampler"
)

// NetworkParams tunes the mirror-download probe.
type NetworkParams struct {
	// URLs are the mirror files to download, tried in order until one
	// succeeds. Each trial downloads at most MaxMB megabytes.
	URLs []string `mapstructure:"urls"`

	// MaxMB caps the bytes downloaded per trial.
	MaxMB int `mapstructure:"max_mb"`
}

// DecodeNetworkParams fills defaults and overlays the raw config map.
func DecodeNetworkParams(raw map[string]any) (NetworkParams, error) {
	p := NetworkParams{MaxMB: 100}
	if err := mapstructure.Decode(raw, &p); err != nil {
		return NetworkParams{}, fmt.Errorf("probe: network params: %w", err)
	}
	return p, nil
}

// HTTPDownloadTrial returns a trial that downloads from the first reachable
// mirror and reports average throughput in MB/s (decimal megabytes, to
// match the curl figures in historical reports).
func HTTPDownloadTrial(client *http.Client, p NetworkParams) sampler.Trial {
	return func(ctx context.Context) (float64, error) {
		if len(p.URLs) == 0 {
			return 0, fmt.Errorf("probe: no mirror urls configured")
		}

		var lastErr error
		for _, url := range p.URLs {
			mbs, err := downloadOnce(ctx, client, url, int64(p.MaxMB)*1000*1000)
			if err != nil {
				lastErr = err
				continue
			}
			return mbs, nil
		}
		return 0, fmt.Errorf("probe: all mirrors failed: %w", lastErr)
	}
}

func downloadOnce(ctx context.Context, client *http.Client, url string, maxBytes int64) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("probe: build request: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe: download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("probe: download %s: unexpected status %d", url, resp.StatusCode)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return 0, fmt.Errorf("probe: download %s: %w", url, err)
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 || n == 0 {
		return 0, fmt.Errorf("probe: download %s: no data transferred", url)
	}

	return float64(n) / 1000 / 1000 / elapsed, nil
}

// CurlDownloadTrial is the command-probe variant used against remote
// targets, where the download has to originate from the benchmarked host.
// curl's %{speed_download} is bytes/sec; the trial converts to MB/s.
func CurlDownloadTrial(r Runner, p NetworkParams, timeout time.Duration) sampler.Trial {
	return func(ctx context.Context) (float64, error) {
		if len(p.URLs) == 0 {
			return 0, fmt.Errorf("probe: no mirror urls configured")
		}

		maxTime := int(timeout.Seconds())
		if maxTime < 1 {
			maxTime = 60
		}

		var lastErr error
		for _, url := range p.URLs {
			cmd := fmt.Sprintf(
				"curl -s -o /dev/null --max-time %d -r 0-%d -w '%%{speed_download}' %s",
				maxTime, int64(p.MaxMB)*1000*1000-1, url)
			out, err := r.Run(ctx, cmd)
			if err != nil {
				lastErr = fmt.Errorf("probe: curl %s: %w", url, err)
				continue
			}
			bps, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
			if err != nil {
				lastErr = fmt.Errorf("probe: parse curl speed %q: %w", firstLine(out), err)
				continue
			}
			if bps <= 0 {
				lastErr = fmt.Errorf("probe: curl %s: zero download speed", url)
				continue
			}
			return bps / 1000 / 1000, nil
		}
		return 0, lastErr
	}
}
