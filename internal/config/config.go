package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/powerbench/powerbench/internal/score"
)

// Run modes and their default trial counts.
const (
	ModeQuick    = "quick"    // one trial per probe
	ModeAccurate = "accurate" // three trials per probe, median wins
)

// Default values applied when fields are absent from the config file.
const (
	DefaultMode         = ModeAccurate
	DefaultTrialTimeout = 2 * time.Minute
	DefaultFormat       = "text"
	DefaultSSHPort      = 22
)

// Default reference ceilings. These describe "100% of scale" for score
// normalization, not absolute hardware truth, and are deployment-tunable.
const (
	DefaultCPUPerCoreCeiling = 4000.0  // sysbench events/sec per core
	DefaultMemoryCeiling     = 18000.0 // MiB/s
	DefaultDiskCeiling       = 700.0   // MB/s
	DefaultNetworkCeiling    = 30.0    // MB/s
	DefaultLoadCeiling       = 1.2     // load1 / cores
)

// Default mirror files for the network probe.
var defaultMirrorURLs = []string{
	"https://speed.hetzner.de/100MB.bin",
	"http://speedtest.tele2.net/100MB.zip",
}

// Config is the top-level powerbench configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	// Mode selects the trial count per probe: quick (1) or accurate (3).
	Mode string `yaml:"mode"`

	// Trials overrides the mode's trial count when positive.
	Trials int `yaml:"trials"`

	// Timeout bounds each individual probe trial.
	Timeout time.Duration `yaml:"timeout"`

	// Parallel runs independent probes concurrently. Sequential is the
	// default since concurrent disk and CPU stress can skew each other.
	Parallel bool `yaml:"parallel"`

	// Host labels the report. Defaults to the local hostname, or the SSH
	// host when benchmarking a remote target.
	Host string `yaml:"host"`

	Output   OutputConfig  `yaml:"output"`
	Weights  score.Weights `yaml:"weights"`
	Ceilings Ceilings      `yaml:"ceilings"`
	Probes   ProbesConfig  `yaml:"probes"`
	SSH      SSHConfig     `yaml:"ssh"`
}

// OutputConfig controls report serialization.
type OutputConfig struct {
	// Format is one of: text | markdown | json.
	Format string `yaml:"format"`

	// Path is the report file. Empty writes to stdout.
	Path string `yaml:"path"`
}

// Ceilings are the per-metric normalization references.
type Ceilings struct {
	// CPUPerCore is the events/sec one core is expected to reach; the
	// effective CPU ceiling is CPUPerCore × core count.
	CPUPerCore float64 `yaml:"cpu_per_core"`

	MemoryMiBs float64 `yaml:"memory_mib_s"`
	DiskMBs    float64 `yaml:"disk_mb_s"`
	NetworkMBs float64 `yaml:"network_mb_s"`
	LoadRatio  float64 `yaml:"load_ratio"`
}

// ProbesConfig carries per-probe tuning. The maps are decoded into typed
// parameter structs by the probe package, so new probe options never touch
// this package.
type ProbesConfig struct {
	CPU     map[string]any `yaml:"cpu"`
	Memory  map[string]any `yaml:"memory"`
	Disk    map[string]any `yaml:"disk"`
	Network map[string]any `yaml:"network"`

	// NodeExporter, when set, sources the load ratio from this metrics
	// endpoint instead of /proc/loadavg.
	NodeExporter string `yaml:"node_exporter"`
}

// SSHConfig describes an optional remote target. When Host is empty the
// local machine is benchmarked.
type SSHConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`

	// KeyFile is the path to a private key for public-key auth.
	KeyFile string `yaml:"key_file"`

	// PasswordEnv names the environment variable holding the password.
	// The password itself never lives in the config file.
	PasswordEnv string `yaml:"password_env"`
}

// Remote reports whether a remote target is configured.
func (s SSHConfig) Remote() bool { return s.Host != "" }

// Password returns the SSH password resolved from the environment.
func (s SSHConfig) Password() string {
	if s.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(s.PasswordEnv)
}

// TrialCount returns the effective number of trials per probe.
func (c *Config) TrialCount() int {
	if c.Trials > 0 {
		return c.Trials
	}
	if c.Mode == ModeQuick {
		return 1
	}
	return 3
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is valid
// as-is, so powerbench runs without any config file at all.
func Defaults() *Config {
	return &Config{
		Mode:    DefaultMode,
		Timeout: DefaultTrialTimeout,
		Output:  OutputConfig{Format: DefaultFormat},
		Weights: score.DefaultWeights(),
		Ceilings: Ceilings{
			CPUPerCore: DefaultCPUPerCoreCeiling,
			MemoryMiBs: DefaultMemoryCeiling,
			DiskMBs:    DefaultDiskCeiling,
			NetworkMBs: DefaultNetworkCeiling,
			LoadRatio:  DefaultLoadCeiling,
		},
		Probes: ProbesConfig{
			Network: map[string]any{"urls": defaultMirrorURLs},
		},
		SSH: SSHConfig{Port: DefaultSSHPort, User: "root"},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	switch cfg.Mode {
	case ModeQuick, ModeAccurate:
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	switch cfg.Output.Format {
	case "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.Trials < 0 {
		return fmt.Errorf("trials must not be negative")
	}

	for name, v := range map[string]float64{
		"cpu_per_core": cfg.Ceilings.CPUPerCore,
		"memory_mib_s": cfg.Ceilings.MemoryMiBs,
		"disk_mb_s":    cfg.Ceilings.DiskMBs,
		"network_mb_s": cfg.Ceilings.NetworkMBs,
		"load_ratio":   cfg.Ceilings.LoadRatio,
	} {
		if v <= 0 {
			return fmt.Errorf("ceiling %s must be positive, got %v", name, v)
		}
	}

	if err := cfg.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}

	if cfg.SSH.Remote() {
		if cfg.SSH.User == "" {
			return fmt.Errorf("ssh.user is required for remote targets")
		}
		if cfg.SSH.Port <= 0 || cfg.SSH.Port > 65535 {
			return fmt.Errorf("ssh.port %d is out of range", cfg.SSH.Port)
		}
		if cfg.SSH.KeyFile == "" && cfg.SSH.PasswordEnv == "" {
			return fmt.Errorf("ssh needs key_file or password_env")
		}
	}

	return nil
}
