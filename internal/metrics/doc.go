// Package metrics decouples the orchestration core from its metrics backend.
//
// The orchestrator reports periodic gauges (agent and task counts) and
// per-execution observations through the Sink interface. PromSink registers
// Prometheus collectors on a caller-supplied registry; NopSink is for
// embedders that do not scrape.
package metrics
