// Package probe builds the trial callbacks the sampler runs.
//
// Command probes (sysbench cpu/memory, dd disk write/read, curl network)
// are expressed over the Runner capability interface so the same probe
// works against the local machine (exec.go) or a remote VPS over SSH.
// The load-ratio probe reads /proc via the FileReader capability or, when
// configured, a node_exporter metrics endpoint parsed with the Prometheus
// text exposition format (load.go).
//
// Every probe returns one numeric observation per invocation and reports
// tool failures as errors; the sampler converts those into fail-soft zero
// observations.
package probe
