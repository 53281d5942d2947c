package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine metrics
	TasksDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_tasks_dispatched_total",
			Help: "Total number of tasks dispatched for execution",
		},
		[]string{"kind"},
	)

	TasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_tasks_completed_total",
			Help: "Total number of tasks that completed successfully",
		},
		[]string{"kind"},
	)

	TasksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_tasks_failed_total",
			Help: "Total number of tasks that failed",
		},
		[]string{"kind"},
	)

	TasksExpanded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_tasks_expanded_total",
			Help: "Total number of dynamic tasks that generated a subgraph",
		},
	)

	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskgraph_scheduling_latency_seconds",
			Help:    "Time taken to dispatch a runnable task after it became ready",
			Buckets: prometheus.DefBuckets,
		},
	)

	TaskRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskgraph_task_run_duration_seconds",
			Help:    "Wall-clock time a task spent executing",
			Buckets: prometheus.DefBuckets,
		},
	)

	RunnableFrontierSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskgraph_runnable_frontier_size",
			Help: "Number of tasks in the scheduling frontier after the last pass",
		},
	)

	// Reference manager / GC metrics
	EphemeralOutputsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_ephemeral_outputs_purged_total",
			Help: "Total number of ephemeral outputs removed once all consumers completed",
		},
	)

	EphemeralOutputsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskgraph_ephemeral_outputs_tracked",
			Help: "Number of ephemeral outputs currently tracked with a live reference count",
		},
	)

	// Resource manager metrics
	ResourceTagInUse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskgraph_resource_tag_in_use",
			Help: "Current concurrent usage of a named resource tag",
		},
		[]string{"tag"},
	)

	ResourceTagSaturated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_resource_tag_saturated_total",
			Help: "Total number of times a task was held back because a resource tag was at budget",
		},
		[]string{"tag"},
	)

	// Storage metrics
	StorageWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_storage_writes_total",
			Help: "Total number of output writes by backend",
		},
		[]string{"backend"},
	)

	StorageReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_storage_reads_total",
			Help: "Total number of output reads by backend",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(TasksDispatched)
	prometheus.MustRegister(TasksCompleted)
	prometheus.MustRegister(TasksFailed)
	prometheus.MustRegister(TasksExpanded)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(TaskRunDuration)
	prometheus.MustRegister(RunnableFrontierSize)
	prometheus.MustRegister(EphemeralOutputsPurged)
	prometheus.MustRegister(EphemeralOutputsTracked)
	prometheus.MustRegister(ResourceTagInUse)
	prometheus.MustRegister(ResourceTagSaturated)
	prometheus.MustRegister(StorageWrites)
	prometheus.MustRegister(StorageReads)
}

// Handler returns the Prometheus HTTP handler for a metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
