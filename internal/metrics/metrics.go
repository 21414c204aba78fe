// ABOUTME: Metrics sink interface and Prometheus implementation for orchestrator gauges.
// ABOUTME: The core reports through the Sink; exposition is the embedder's concern.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot carries the periodic gauge values the orchestrator reports.
type Snapshot struct {
	TotalAgents    int
	ActiveAgents   int
	PendingTasks   int
	ActiveTasks    int
	CompletedTasks int
}

// Sink receives orchestrator metrics. Implementations must not block.
type Sink interface {
	RecordGauges(s Snapshot)
	ObserveExecution(kind, status string, duration time.Duration)
	IncRetry(kind string)
	IncFailure(kind, reason string)
}

// NopSink discards all metrics.
type NopSink struct{}

func (NopSink) RecordGauges(Snapshot)                          {}
func (NopSink) ObserveExecution(string, string, time.Duration) {}
func (NopSink) IncRetry(string)                                {}
func (NopSink) IncFailure(string, string)                      {}

// PromSink exposes orchestrator activity as Prometheus collectors.
type PromSink struct {
	agentsTotal    prometheus.Gauge
	agentsActive   prometheus.Gauge
	tasksPending   prometheus.Gauge
	tasksActive    prometheus.Gauge
	tasksCompleted prometheus.Gauge

	execDuration *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

// MustNewPromSink constructs a PromSink using the provided registerer. The
// caller is responsible for supplying a fresh registry when unique metric
// names are required (for example in tests). Registration errors panic,
// mirroring promauto semantics, so configuration bugs surface early.
func MustNewPromSink(reg prometheus.Registerer) *PromSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zmart",
			Subsystem: "orchestrator",
			Name:      name,
			Help:      help,
		})
	}

	s := &PromSink{
		agentsTotal:    gauge("agents_total", "Number of registered agents."),
		agentsActive:   gauge("agents_active", "Number of agents currently executing a task."),
		tasksPending:   gauge("tasks_pending", "Number of tasks waiting for dispatch."),
		tasksActive:    gauge("tasks_active", "Number of tasks currently executing."),
		tasksCompleted: gauge("tasks_completed", "Number of terminal tasks held in the archive."),
		execDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "zmart",
				Subsystem: "orchestrator",
				Name:      "task_execution_seconds",
				Help:      "Duration of task executions by kind and outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind", "status"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zmart",
				Subsystem: "orchestrator",
				Name:      "task_retries_total",
				Help:      "Number of times a task was requeued after a handler failure.",
			},
			[]string{"kind"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zmart",
				Subsystem: "orchestrator",
				Name:      "task_failures_total",
				Help:      "Total terminal task failures by kind and reason.",
			},
			[]string{"kind", "reason"},
		),
	}

	collectors := []prometheus.Collector{
		s.agentsTotal, s.agentsActive,
		s.tasksPending, s.tasksActive, s.tasksCompleted,
		s.execDuration, s.retries, s.failures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			panic(err)
		}
	}

	return s
}

// RecordGauges publishes the periodic gauge snapshot.
func (s *PromSink) RecordGauges(snap Snapshot) {
	s.agentsTotal.Set(float64(snap.TotalAgents))
	s.agentsActive.Set(float64(snap.ActiveAgents))
	s.tasksPending.Set(float64(snap.PendingTasks))
	s.tasksActive.Set(float64(snap.ActiveTasks))
	s.tasksCompleted.Set(float64(snap.CompletedTasks))
}

// ObserveExecution records the duration of one task execution.
func (s *PromSink) ObserveExecution(kind, status string, duration time.Duration) {
	s.execDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// IncRetry counts a requeue after a handler failure.
func (s *PromSink) IncRetry(kind string) {
	s.retries.WithLabelValues(kind).Inc()
}

// IncFailure counts a terminal failure.
func (s *PromSink) IncFailure(kind, reason string) {
	s.failures.WithLabelValues(kind, reason).Inc()
}
