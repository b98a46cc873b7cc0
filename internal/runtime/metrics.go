package runtime

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksSpawnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "overseer_tasks_spawned_total",
			Help: "Total number of tasks accepted by Spawn.",
		},
	)

	tasksFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overseer_tasks_finished_total",
			Help: "Total number of tasks that reached a terminal state.",
		},
		[]string{"state"},
	)

	tasksInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "overseer_tasks_inflight",
			Help: "Number of tasks currently running.",
		},
	)

	taskDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "overseer_task_duration_seconds",
			Help:    "Task execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	deadlineTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "overseer_deadline_timeouts_total",
			Help: "Total number of ExecuteWithTimeout calls that hit their deadline.",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksSpawnedTotal)
	prometheus.MustRegister(tasksFinishedTotal)
	prometheus.MustRegister(tasksInflight)
	prometheus.MustRegister(taskDurationSeconds)
	prometheus.MustRegister(deadlineTimeoutsTotal)
}
