// Package suite wires probes, sampler, and scoring into one benchmark run.
//
// Run builds the probe set from the configuration, collects each probe's
// sample set (sequentially by default, concurrently when configured —
// results are probe-local so no ordering constraint exists between
// probes), reduces samples to aggregates, derives both score
// representations per metric, and blends the discrete rating scores into
// the composite power score, verdict, and strict gate.
//
// A run always yields a Result: probes whose every trial failed surface as
// 0/Poor with an issue entry instead of aborting the report.
package suite
