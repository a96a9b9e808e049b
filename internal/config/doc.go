// Package config loads and validates the powerbench YAML configuration.
//
// Load applies defaults, parses the file, and validates before anything
// else runs: bad ceilings or a weight vector that does not sum to 1.0 are
// configuration errors and must fail fast, never surface mid-benchmark.
// Watch re-loads the file on change for long-lived watch mode.
package config
