package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/powerbench/powerbench/internal/config"
	"github.com/powerbench/powerbench/internal/probe"
	"github.com/powerbench/powerbench/internal/remote"
	"github.com/powerbench/powerbench/internal/report"
	"github.com/powerbench/powerbench/internal/suite"
)

// Exit codes. The gate code lets CI pipelines fail a provisioning step on
// a weak host without parsing the report.
const (
	exitOK       = 0
	exitError    = 1
	exitGateFail = 2
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, defaults apply without one)")
	mode := flag.String("mode", "", "override run mode: quick | accurate")
	format := flag.String("format", "", "override output format: text | markdown | json")
	outPath := flag.String("o", "", "write the report to this file instead of stdout")
	parallel := flag.Bool("parallel", false, "run independent probes concurrently")
	gate := flag.Bool("gate", false, "exit with code 2 unless the strict gate passes")
	watch := flag.Bool("watch", false, "re-run the benchmark whenever the config file changes")
	quiet := flag.Bool("quiet", false, "suppress the progress bar")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("powerbench starting", "config", *configPath)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(exitError)
	}
	applyOverrides(cfg, *mode, *format, *outPath, *parallel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*watch {
		os.Exit(runOnce(ctx, cfg, *gate, *quiet))
	}

	if *configPath == "" {
		slog.Error("-watch needs -config: there is no file to watch")
		os.Exit(exitError)
	}

	// Watch mode: benchmark now, then again after every config change.
	// Useful while tuning ceilings and weights against a known host.
	runOnce(ctx, cfg, false, *quiet)
	err = config.Watch(ctx, *configPath, func(updated *config.Config) {
		applyOverrides(updated, *mode, *format, *outPath, *parallel)
		runOnce(ctx, updated, false, *quiet)
	})
	if err != nil {
		slog.Error("config watcher stopped", "err", err)
		os.Exit(exitError)
	}
}

// loadConfig reads the config file, or returns pure defaults when no path
// is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

// applyOverrides layers non-empty command-line flags over the file config.
func applyOverrides(cfg *config.Config, mode, format, outPath string, parallel bool) {
	if mode != "" {
		cfg.Mode = mode
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if outPath != "" {
		cfg.Output.Path = outPath
	}
	if parallel {
		cfg.Parallel = true
	}
}

// runOnce executes one full benchmark run and writes the report, returning
// the process exit code.
func runOnce(ctx context.Context, cfg *config.Config, gate, quiet bool) int {
	if cfg.Host == "" {
		cfg.Host = defaultHost(cfg)
	}

	var (
		runner probe.Runner     = probe.Local{}
		files  probe.FileReader = probe.Local{}
	)
	if cfg.SSH.Remote() {
		target, err := remote.Dial(cfg.SSH)
		if err != nil {
			slog.Error("failed to connect to remote target", "host", cfg.SSH.Host, "err", err)
			return exitError
		}
		defer target.Close()
		runner, files = target, target
		slog.Info("benchmarking remote target", "host", cfg.SSH.Host, "user", cfg.SSH.User)
	}

	s := suite.New(cfg, runner, files)
	if !quiet {
		bar := progressbar.Default(int64(s.TrialsTotal()), "Benchmarking:")
		s.OnTrial(func(string, int, float64) { bar.Add(1) })
		defer bar.Finish()
	}

	res, err := s.Run(ctx)
	if err != nil {
		slog.Error("benchmark run failed", "err", err)
		return exitError
	}

	var w io.Writer = os.Stdout
	if cfg.Output.Path != "" {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			slog.Error("failed to create report file", "path", cfg.Output.Path, "err", err)
			return exitError
		}
		defer f.Close()
		w = f
	}
	if err := report.Write(w, cfg.Output.Format, res); err != nil {
		slog.Error("failed to write report", "err", err)
		return exitError
	}

	if gate && !res.GatePass {
		slog.Warn("strict gate failed", "power_score", res.PowerScore, "verdict", res.Verdict)
		return exitGateFail
	}
	return exitOK
}

// defaultHost labels the report when the config names no host.
func defaultHost(cfg *config.Config) string {
	if cfg.SSH.Remote() {
		return cfg.SSH.Host
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "localhost"
}
