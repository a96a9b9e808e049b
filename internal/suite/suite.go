package suite

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alitto/pond"

	"github.com/powerbench/powerbench/internal/config"
	"github.com/powerbench/powerbench/internal/probe"
	"github.com/powerbench/powerbench/internal/sampler"
	"github.com/powerbench/powerbench/internal/score"
)

// Metric names used in results and reports.
const (
	MetricCPU       = "cpu"
	MetricMemory    = "memory"
	MetricDiskWrite = "disk_write"
	MetricDiskRead  = "disk_read"
	MetricNetwork   = "network"
	MetricLoad      = "load"
)

// Metric is one probe's fully-derived result: the raw aggregate plus both
// score representations (continuous normalized, discrete rating-based).
type Metric struct {
	Name    string
	Unit    string
	Samples []float64

	Aggregate score.Aggregate

	// Normalized is the continuous 0–100 score against the metric's
	// reference ceiling.
	Normalized float64

	// Rating and RatingScore are the discrete representation; RatingScore
	// is what feeds the composite power score.
	Rating      score.Rating
	RatingScore float64
}

// failed reports whether every trial of the probe produced a zero.
func (m Metric) failed() bool {
	return m.Aggregate.Trials > 0 && m.Aggregate.Failures == m.Aggregate.Trials
}

// Result is the complete outcome of one benchmark run.
type Result struct {
	Host       string
	Mode       string
	Cores      int
	StartedAt  time.Time
	FinishedAt time.Time

	CPU       Metric
	Memory    Metric
	DiskWrite Metric
	DiskRead  Metric
	Network   Metric
	Load      Metric

	PowerScore float64
	Verdict    string
	GatePass   bool
	Issues     []string
}

// Suite runs the full probe set against one target.
type Suite struct {
	cfg    *config.Config
	runner probe.Runner
	files  probe.FileReader
	client *http.Client

	// onTrial, when set, is invoked after every trial of every probe.
	onTrial func(name string, trial int, value float64)
}

// New builds a Suite for the given target capabilities. runner executes
// probe commands, files reads /proc from the benchmarked host.
func New(cfg *config.Config, runner probe.Runner, files probe.FileReader) *Suite {
	return &Suite{
		cfg:    cfg,
		runner: runner,
		files:  files,
		client: &http.Client{},
	}
}

// OnTrial registers a per-trial hook, used for progress reporting.
func (s *Suite) OnTrial(fn func(name string, trial int, value float64)) {
	s.onTrial = fn
}

// TrialsTotal returns the number of trials the run will attempt, for
// progress reporting.
func (s *Suite) TrialsTotal() int {
	const probes = 6
	return probes * s.cfg.TrialCount()
}

// Run executes every probe and scores the outcome. It returns an error
// only for configuration problems; probe failures degrade the result.
func (s *Suite) Run(ctx context.Context) (*Result, error) {
	cpuParams, err := probe.DecodeCPUParams(s.cfg.Probes.CPU)
	if err != nil {
		return nil, err
	}
	memParams, err := probe.DecodeMemoryParams(s.cfg.Probes.Memory)
	if err != nil {
		return nil, err
	}
	diskParams, err := probe.DecodeDiskParams(s.cfg.Probes.Disk)
	if err != nil {
		return nil, err
	}
	netParams, err := probe.DecodeNetworkParams(s.cfg.Probes.Network)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Host:      s.cfg.Host,
		Mode:      s.cfg.Mode,
		StartedAt: time.Now().UTC(),
	}

	var issues []string

	cores, err := probe.CoreCount(ctx, s.files)
	if err != nil {
		slog.Warn("suite: could not determine core count, assuming 1", "err", err)
		issues = append(issues, fmt.Sprintf("could not determine core count: %v", err))
		cores = 1
	}
	res.Cores = cores

	cpuTrial := probe.CPUTrial(s.runner, cpuParams)
	memTrial := probe.MemoryTrial(s.runner, memParams)
	if err := probe.SysbenchPreflight(ctx, s.runner); err != nil {
		slog.Warn("suite: sysbench preflight failed, cpu and memory probes will score 0", "err", err)
		issues = append(issues, fmt.Sprintf("sysbench unavailable: %v", err))
		failing := func(ctx context.Context) (float64, error) { return 0, err }
		cpuTrial, memTrial = failing, failing
	}

	netTrial := probe.HTTPDownloadTrial(s.client, netParams)
	if s.cfg.SSH.Remote() {
		// The download must originate from the benchmarked host, not from
		// wherever powerbench happens to run.
		netTrial = probe.CurlDownloadTrial(s.runner, netParams, s.cfg.Timeout)
	}

	loadTrial := probe.LoadRatioTrial(s.files)
	if s.cfg.Probes.NodeExporter != "" {
		loadTrial = probe.NodeExporterLoadTrial(s.client, s.cfg.Probes.NodeExporter)
	}

	opts := sampler.Options{
		Trials:  s.cfg.TrialCount(),
		Timeout: s.cfg.Timeout,
		OnTrial: s.onTrial,
	}

	// Disk write and read share the scratch file, so they run inside one
	// task even in parallel mode.
	tasks := []func(){
		func() {
			res.CPU.Samples = sampler.Collect(ctx, MetricCPU, cpuTrial, opts)
		},
		func() {
			res.Memory.Samples = sampler.Collect(ctx, MetricMemory, memTrial, opts)
		},
		func() {
			res.DiskWrite.Samples = sampler.Collect(ctx, MetricDiskWrite, probe.DiskWriteTrial(s.runner, diskParams), opts)
			res.DiskRead.Samples = sampler.Collect(ctx, MetricDiskRead, probe.DiskReadTrial(s.runner, diskParams), opts)
			probe.DiskCleanup(ctx, s.runner, diskParams)
		},
		func() {
			res.Network.Samples = sampler.Collect(ctx, MetricNetwork, netTrial, opts)
		},
		func() {
			res.Load.Samples = sampler.Collect(ctx, MetricLoad, loadTrial, opts)
		},
	}

	if s.cfg.Parallel {
		pool := pond.New(len(tasks), 0, pond.MinWorkers(len(tasks)))
		for _, task := range tasks {
			pool.Submit(task)
		}
		pool.StopAndWait()
	} else {
		for _, task := range tasks {
			task()
		}
	}

	if err := s.score(res); err != nil {
		return nil, err
	}

	res.Issues = append(issues, res.Issues...)
	res.FinishedAt = time.Now().UTC()

	slog.Info("suite: run complete",
		"host", res.Host,
		"power_score", res.PowerScore,
		"verdict", res.Verdict,
		"issues", len(res.Issues),
	)
	return res, nil
}

// score derives aggregates, both score representations, the composite
// power score, verdict, gate, and issue flags on res in place.
func (s *Suite) score(res *Result) error {
	ceil := s.cfg.Ceilings
	cpuCeiling := ceil.CPUPerCore * float64(res.Cores)

	var err error
	if res.CPU, err = s.metric(MetricCPU, "events/s", res.CPU.Samples, score.KindCPU, cpuCeiling); err != nil {
		return err
	}
	if res.Memory, err = s.metric(MetricMemory, "MiB/s", res.Memory.Samples, score.KindMemory, ceil.MemoryMiBs); err != nil {
		return err
	}
	if res.DiskWrite, err = s.metric(MetricDiskWrite, "MB/s", res.DiskWrite.Samples, score.KindDisk, ceil.DiskMBs); err != nil {
		return err
	}
	if res.DiskRead, err = s.metric(MetricDiskRead, "MB/s", res.DiskRead.Samples, score.KindDisk, ceil.DiskMBs); err != nil {
		return err
	}
	if res.Network, err = s.metric(MetricNetwork, "MB/s", res.Network.Samples, score.KindNetwork, ceil.NetworkMBs); err != nil {
		return err
	}
	if res.Load, err = s.metric(MetricLoad, "ratio", res.Load.Samples, score.KindLoad, ceil.LoadRatio); err != nil {
		return err
	}

	ratings := score.Ratings{
		CPU:       res.CPU.Rating,
		Memory:    res.Memory.Rating,
		Disk:      res.DiskWrite.Rating,
		Network:   res.Network.Rating,
		Stability: res.Load.Rating,
	}
	res.PowerScore = score.Composite(ratings, s.cfg.Weights)
	res.Verdict = score.VerdictFor(res.PowerScore)
	res.GatePass = score.Gate(ratings, res.PowerScore)

	res.Issues = score.Issues(score.IssueInput{
		CPUMedian:         res.CPU.Aggregate.Median,
		Cores:             res.Cores,
		CPUCeilingPerCore: ceil.CPUPerCore,
		DiskWriteMedian:   res.DiskWrite.Aggregate.Median,
		NetworkMedian:     res.Network.Aggregate.Median,
		CPUCVPct:          res.CPU.Aggregate.CVPct,
		MemoryCVPct:       res.Memory.Aggregate.CVPct,
		DiskCVPct:         res.DiskWrite.Aggregate.CVPct,
		NetworkCVPct:      res.Network.Aggregate.CVPct,
		StabilityScore:    res.Load.RatingScore,
	})

	for _, m := range []Metric{res.CPU, res.Memory, res.DiskWrite, res.DiskRead, res.Network, res.Load} {
		if m.failed() {
			res.Issues = append(res.Issues, fmt.Sprintf("%s probe produced no successful trials", m.Name))
		}
	}

	return nil
}

// metric reduces one probe's samples to its Metric. kind selects the
// rating table; ceiling the normalization reference. The load ratio uses
// the inverted scale since lower is better.
func (s *Suite) metric(name, unit string, samples []float64, kind score.Kind, ceiling float64) (Metric, error) {
	agg, err := score.NewAggregate(samples)
	if err != nil {
		return Metric{}, fmt.Errorf("suite: %s: %w", name, err)
	}

	normalized := score.Normalize(agg.Median, ceiling)
	if kind == score.KindLoad {
		normalized = score.NormalizeInverted(agg.Median, ceiling)
	}
	rating := score.Rate(kind, agg.Median)

	// An entirely-failed probe reports 0/Poor, never a flattering rating
	// (a zero load ratio would otherwise rate Excellent).
	if agg.Trials > 0 && agg.Failures == agg.Trials {
		normalized = 0
		rating = score.Poor
	}

	return Metric{
		Name:        name,
		Unit:        unit,
		Samples:     samples,
		Aggregate:   agg,
		Normalized:  normalized,
		Rating:      rating,
		RatingScore: rating.Score(),
	}, nil
}
