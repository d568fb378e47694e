// Package telemetry exposes the supervisor's counters to Prometheus.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "exmon"

// Exit reasons used as the `reason` label of ChildExits.
const (
	ExitClean  = "clean"
	ExitStatus = "status"
	ExitSignal = "signal"
	ExitLost   = "lost"
)

// Metrics is the set of supervisor counters. All fields are safe for
// concurrent use.
type Metrics struct {
	ChildStarts    prometheus.Counter
	SpawnFailures  prometheus.Counter
	ChildExits     *prometheus.CounterVec
	Abends         prometheus.Gauge
	Rotations      prometheus.Counter
	RotationErrors prometheus.Counter
	ForwardedBytes *prometheus.CounterVec
	ForwardErrors  *prometheus.CounterVec
}

// NewRegistry creates a registry, optionally carrying the Go runtime and
// process collectors.
func NewRegistry(goCollector, processCollector bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	if goCollector {
		reg.MustRegister(prometheus.NewGoCollector())
	}

	if processCollector {
		reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}

	return reg
}

// NewMetrics creates the supervisor counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChildStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "child_starts_total",
			Help:      "Number of times the child process was started.",
		}),
		SpawnFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "child_spawn_failures_total",
			Help:      "Number of failed attempts to start the child process.",
		}),
		ChildExits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "child_exits_total",
			Help:      "Number of observed child terminations by reason.",
		}, []string{"reason"}),
		Abends: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "abend_window_count",
			Help:      "Abends counted in the current abend window.",
		}),
		Rotations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_rotations_total",
			Help:      "Number of log files opened.",
		}),
		RotationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_rotation_errors_total",
			Help:      "Number of failed attempts to open a log file.",
		}),
		ForwardedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_bytes_total",
			Help:      "Bytes of child output forwarded into the log.",
		}, []string{"stream"}),
		ForwardErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_errors_total",
			Help:      "Failed writes of child output into the log.",
		}, []string{"stream"}),
	}
}
