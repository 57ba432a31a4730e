package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "snapshot",
		Name:      "builds_total",
		Help:      "Total number of dashboard snapshot builds broken down by result.",
	}, []string{"result"})

	testRunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "test_runs",
		Name:      "started_total",
		Help:      "Total number of orchestrator runs launched.",
	})

	testRunsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "test_runs",
		Name:      "finished_total",
		Help:      "Total number of orchestrator runs that exited broken down by result.",
	}, []string{"result"})

	testRunActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Subsystem: "test_run",
		Name:      "active",
		Help:      "1 while an orchestrator run is in progress.",
	})

	testRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Subsystem: "test_run",
		Name:      "duration_seconds",
		Help:      "Wall time of orchestrator runs.",
		Buckets:   []float64{1, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
	})

	optimizationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "optimization",
		Name:      "runs_total",
		Help:      "Total number of stored TOPSIS optimizations broken down by weight set.",
	}, []string{"weights"})
)

func RecordSnapshotBuild(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	snapshotBuilds.WithLabelValues(result).Inc()
}

func RecordRunStarted() {
	testRunsStarted.Inc()
	testRunActive.Set(1)
}

// RecordRunFinished classifies the exit as "success", "failure" (non-zero
// exit) or "error" (the process could not be waited on).
func RecordRunFinished(exitCode int, err error, d time.Duration) {
	result := "success"
	switch {
	case err != nil:
		result = "error"
	case exitCode != 0:
		result = "failure"
	}
	testRunsFinished.WithLabelValues(result).Inc()
	testRunActive.Set(0)
	testRunDuration.Observe(d.Seconds())
}

func RecordOptimization(custom bool) {
	weights := "default"
	if custom {
		weights = "custom"
	}
	optimizationRuns.WithLabelValues(weights).Inc()
}
