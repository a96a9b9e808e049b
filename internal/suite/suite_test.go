package suite

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/powerbench/powerbench/internal/config"
	"github.com/powerbench/powerbench/internal/score"
)

// fakeRunner maps a command substring to canned output or an error.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, cmd string) ([]byte, error) {
	for sub, err := range f.errs {
		if strings.Contains(cmd, sub) {
			return nil, err
		}
	}
	for sub, out := range f.outputs {
		if strings.Contains(cmd, sub) {
			return []byte(out), nil
		}
	}
	return nil, errors.New("fakeRunner: no output for " + cmd)
}

// fakeFiles implements probe.FileReader over an in-memory map.
type fakeFiles map[string]string

func (f fakeFiles) ReadFile(_ context.Context, path string) ([]byte, error) {
	content, ok := f[path]
	if !ok {
		return nil, errors.New("fakeFiles: " + path + " not found")
	}
	return []byte(content), nil
}

func cpuinfo(cores int) string {
	var b strings.Builder
	for i := 0; i < cores; i++ {
		b.WriteString("processor\t: ")
		b.WriteByte(byte('0' + i))
		b.WriteString("\nmodel name\t: AMD EPYC 7543 32-Core Processor\n")
	}
	return b.String()
}

func sysbenchCPU(eventsPerSec string) string {
	return "sysbench 1.0.20\n\nCPU speed:\n    events per second:  " + eventsPerSec + "\n"
}

const sysbenchMemory = "sysbench 1.0.20\n\n20480.00 MiB transferred (17911.46 MiB/sec)\n"

const ddWrite = "1073741824 bytes (1.1 GB, 1.0 GiB) copied, 1.5 s, 715 MB/s\n"
const ddRead = "1073741824 bytes (1.1 GB, 1.0 GiB) copied, 2.1 s, 511 MB/s\n"

// mirror starts an httptest server serving a 2 MB payload and returns a
// config probes block pointing at it.
func mirror(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2*1000*1000))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func healthyRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{
		"sysbench --version": "sysbench 1.0.20\n",
		"sysbench cpu":       sysbenchCPU("9123.47"),
		"sysbench memory":    sysbenchMemory,
		"conv=fdatasync":     ddWrite,
		"iflag=direct":       ddRead,
		"rm -f":              "",
	}}
}

func testConfig(t *testing.T, mirrorURL string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Host = "vps-test"
	cfg.Mode = config.ModeAccurate
	cfg.Timeout = 10 * time.Second
	cfg.Probes.Network = map[string]any{"urls": []string{mirrorURL}, "max_mb": 2}
	return cfg
}

func TestRun_HealthyHost(t *testing.T) {
	// 2 cores: 9123.47 events/s is 4561/core, comfortably above the 80%
	// efficiency floor, and above the absolute 8000 Excellent cut.
	files := fakeFiles{
		"/proc/loadavg": "0.30 0.20 0.10 1/120 999\n",
		"/proc/cpuinfo": cpuinfo(2),
	}
	cfg := testConfig(t, mirror(t).URL)
	s := New(cfg, healthyRunner(), files)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Host != "vps-test" || res.Mode != config.ModeAccurate || res.Cores != 2 {
		t.Errorf("host/mode/cores = %q/%q/%d", res.Host, res.Mode, res.Cores)
	}

	if res.CPU.Rating != score.Excellent {
		t.Errorf("CPU.Rating = %v, want Excellent", res.CPU.Rating)
	}
	// 9123.47 vs 2×4000 ceiling saturates the continuous scale.
	if res.CPU.Normalized != 100 {
		t.Errorf("CPU.Normalized = %v, want 100", res.CPU.Normalized)
	}
	if res.Memory.Rating != score.Good {
		t.Errorf("Memory.Rating = %v, want Good", res.Memory.Rating)
	}
	if res.DiskWrite.Rating != score.Excellent || res.DiskWrite.Aggregate.Median != 715 {
		t.Errorf("DiskWrite = %v/%v", res.DiskWrite.Rating, res.DiskWrite.Aggregate.Median)
	}
	if res.DiskRead.Aggregate.Median != 511 {
		t.Errorf("DiskRead.Median = %v, want 511", res.DiskRead.Aggregate.Median)
	}
	// Load 0.30 over 2 cores → ratio 0.15 → Excellent.
	if res.Load.Rating != score.Excellent {
		t.Errorf("Load.Rating = %v, want Excellent", res.Load.Rating)
	}

	// The network figure depends on loopback speed; only its consistency
	// with the rating table is asserted.
	if res.Network.Aggregate.Median <= 0 {
		t.Errorf("Network.Median = %v, want positive", res.Network.Aggregate.Median)
	}
	if got := score.Rate(score.KindNetwork, res.Network.Aggregate.Median); res.Network.Rating != got {
		t.Errorf("Network.Rating = %v, want %v", res.Network.Rating, got)
	}

	// Identical trials → CV 0 everywhere → no noise issues; all floors met
	// (assuming loopback beats 10 MB/s).
	for _, is := range res.Issues {
		if strings.Contains(is, "noisy") {
			t.Errorf("unexpected noise issue: %q", is)
		}
	}

	if res.Verdict != score.VerdictExcellent {
		t.Errorf("Verdict = %q, want %q (power=%v)", res.Verdict, score.VerdictExcellent, res.PowerScore)
	}
	if !res.GatePass {
		t.Errorf("GatePass = false, power=%v", res.PowerScore)
	}
}

func TestRun_PerCoreNormalization(t *testing.T) {
	// 9000 events/s on 8 cores with the default 4000/core ceiling gives a
	// 32000 total ceiling → normalized 28.125, yet rated Excellent on the
	// absolute threshold table. Both representations must coexist.
	r := healthyRunner()
	r.outputs["sysbench cpu"] = sysbenchCPU("9000.00")
	files := fakeFiles{
		"/proc/loadavg": "0.30 0.20 0.10 1/120 999\n",
		"/proc/cpuinfo": cpuinfo(8),
	}
	s := New(testConfig(t, mirror(t).URL), r, files)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if math.Abs(res.CPU.Normalized-28.125) > 1e-9 {
		t.Errorf("CPU.Normalized = %v, want 28.125", res.CPU.Normalized)
	}
	if res.CPU.Rating != score.Excellent {
		t.Errorf("CPU.Rating = %v, want Excellent", res.CPU.Rating)
	}
	if res.CPU.RatingScore != 100 {
		t.Errorf("CPU.RatingScore = %v, want 100", res.CPU.RatingScore)
	}

	// 9000/8 = 1125 events/s per core is 28% of the per-core ceiling, so
	// the efficiency issue must fire.
	found := false
	for _, is := range res.Issues {
		if strings.Contains(is, "per-core efficiency") {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want a per-core efficiency entry", res.Issues)
	}
}

func TestRun_DeadNetworkProbe(t *testing.T) {
	files := fakeFiles{
		"/proc/loadavg": "0.30 0.20 0.10 1/120 999\n",
		"/proc/cpuinfo": cpuinfo(2),
	}
	cfg := testConfig(t, "http://127.0.0.1:1/dead")
	cfg.Timeout = 2 * time.Second
	s := New(cfg, healthyRunner(), files)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// All three trials fail → sample set [0,0,0] → median 0, CV 0, Poor.
	if len(res.Network.Samples) != 3 {
		t.Fatalf("Network.Samples = %v, want 3 zero entries", res.Network.Samples)
	}
	if res.Network.Aggregate.Median != 0 || res.Network.Aggregate.CVPct != 0 {
		t.Errorf("Network aggregate = %+v, want median 0 cv 0", res.Network.Aggregate)
	}
	if res.Network.Rating != score.Poor || res.Network.Normalized != 0 {
		t.Errorf("Network = %v/%v, want Poor/0", res.Network.Rating, res.Network.Normalized)
	}

	var related []string
	for _, is := range res.Issues {
		if strings.Contains(is, "network") {
			related = append(related, is)
		}
	}
	if len(related) == 0 {
		t.Errorf("Issues = %v, want network-related entries", res.Issues)
	}
	if res.GatePass {
		t.Error("GatePass = true with a dead network probe")
	}
}

func TestRun_EverythingPoorScoresExactly40(t *testing.T) {
	// sysbench missing, dd failing, network dead, load ratio 6.0: all five
	// composite inputs rate Poor → 40 × (weights summing to 1) = 40.
	r := &fakeRunner{
		outputs: map[string]string{"rm -f": ""},
		errs: map[string]error{
			"sysbench": errors.New("sh: sysbench: not found"),
			"dd ":      errors.New("dd: permission denied"),
			"[ -f":     errors.New("dd: permission denied"),
		},
	}
	files := fakeFiles{
		"/proc/loadavg": "12.00 11.50 11.00 9/412 999\n",
		"/proc/cpuinfo": cpuinfo(2),
	}
	cfg := testConfig(t, "http://127.0.0.1:1/dead")
	cfg.Timeout = 2 * time.Second
	s := New(cfg, r, files)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.PowerScore != 40 {
		t.Errorf("PowerScore = %v, want exactly 40", res.PowerScore)
	}
	if res.Verdict != score.VerdictWeak {
		t.Errorf("Verdict = %q, want %q", res.Verdict, score.VerdictWeak)
	}
	if res.GatePass {
		t.Error("GatePass = true, want false")
	}

	// The sysbench preflight failure must be called out.
	found := false
	for _, is := range res.Issues {
		if strings.Contains(is, "sysbench unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want a sysbench entry", res.Issues)
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	files := fakeFiles{
		"/proc/loadavg": "0.30 0.20 0.10 1/120 999\n",
		"/proc/cpuinfo": cpuinfo(2),
	}
	url := mirror(t).URL

	seq := New(testConfig(t, url), healthyRunner(), files)
	seqRes, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("sequential Run() error = %v", err)
	}

	cfg := testConfig(t, url)
	cfg.Parallel = true
	par := New(cfg, healthyRunner(), files)
	parRes, err := par.Run(context.Background())
	if err != nil {
		t.Fatalf("parallel Run() error = %v", err)
	}

	// Deterministic fields must not depend on probe scheduling.
	if seqRes.CPU.Aggregate.Median != parRes.CPU.Aggregate.Median ||
		seqRes.Memory.Aggregate.Median != parRes.Memory.Aggregate.Median ||
		seqRes.DiskWrite.Aggregate.Median != parRes.DiskWrite.Aggregate.Median ||
		seqRes.Load.Aggregate.Median != parRes.Load.Aggregate.Median {
		t.Errorf("parallel medians differ from sequential")
	}
}

func TestRun_BadProbeParams(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Probes.CPU = map[string]any{"threads": "eight"}
	s := New(cfg, healthyRunner(), fakeFiles{"/proc/cpuinfo": cpuinfo(1)})

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("Run() with bad probe params: want error")
	}
}

func TestTrialsTotal(t *testing.T) {
	cfg := config.Defaults() // accurate mode, 3 trials, 6 probes
	s := New(cfg, &fakeRunner{}, fakeFiles{})
	if got := s.TrialsTotal(); got != 18 {
		t.Errorf("TrialsTotal() = %d, want 18", got)
	}
}
