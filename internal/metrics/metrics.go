// Package metrics defines Prometheus collectors for catalog query latency,
// job-queue throughput, crontab regeneration, pending-log drain activity,
// retention deletions, executor subprocess outcomes, and alert delivery.
// Only the control daemon uses the package, to serve /metrics and set
// pgbackman_info.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog query metrics.
	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgbackman_catalog_query_duration_seconds",
			Help:    "Duration of catalog queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_catalog_query_errors_total",
			Help: "Total number of catalog query errors",
		},
		[]string{"operation", "kind"},
	)

	CatalogConnectionPoolInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgbackman_catalog_connection_pool_in_use",
			Help: "Current number of acquired connections in the catalog pool",
		},
	)

	// Job queue metrics.
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_jobs_enqueued_total",
			Help: "Total number of jobs enqueued, by kind",
		},
		[]string{"kind"},
	)

	JobsDequeuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_jobs_dequeued_total",
			Help: "Total number of jobs fetched by a control daemon, by kind",
		},
		[]string{"kind"},
	)

	JobsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_jobs_failed_total",
			Help: "Total number of jobs that failed processing and were left in queue for retry",
		},
		[]string{"kind"},
	)

	JobQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgbackman_job_queue_depth",
			Help: "Current number of unprocessed jobs addressed to a backup server",
		},
		[]string{"backup_server"},
	)

	JobsOrphanedPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackman_jobs_orphaned_pruned_total",
			Help: "Total number of orphaned job-queue rows removed by the maintenance loop",
		},
	)

	// Crontab regeneration metrics.
	CrontabRegenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_crontab_regenerations_total",
			Help: "Total number of crontab regenerations attempted, by outcome",
		},
		[]string{"outcome"}, // "written", "unchanged", "error"
	)

	CrontabRegenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgbackman_crontab_regeneration_duration_seconds",
			Help:    "Duration of crontab regeneration (render + atomic write)",
			Buckets: prometheus.DefBuckets,
		},
	)

	AtJobsInstalledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_at_jobs_installed_total",
			Help: "Total number of at(1) jobs installed, by kind",
		},
		[]string{"kind"}, // "snapshot", "restore"
	)

	// Pending-log metrics.
	PendingLogLinesAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackman_pending_log_lines_appended_total",
			Help: "Total number of lines appended to the pending-log spool (catalog was unreachable)",
		},
	)

	PendingLogLinesDrainedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_pending_log_lines_drained_total",
			Help: "Total number of pending-log lines drained into the catalog, by outcome",
		},
		[]string{"outcome"}, // "ok", "bad"
	)

	PendingLogFilesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackman_pending_log_files_deleted_total",
			Help: "Total number of pending-log files fully drained and unlinked",
		},
	)

	// Retention / maintenance metrics.
	RetentionDeletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackman_retention_deletions_total",
			Help: "Total number of catalog rows expired and queued for artifact deletion",
		},
	)

	RestoreCatalogPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackman_restore_catalog_purged_total",
			Help: "Total number of restore_catalog rows purged by age",
		},
	)

	CatalogVacuumsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgbackman_catalog_vacuums_total",
			Help: "Total number of catalog VACUUM passes run by the maintenance loop",
		},
	)

	// Executor metrics.
	ExecutorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_executor_runs_total",
			Help: "Total number of executor invocations, by operation and outcome",
		},
		[]string{"operation", "outcome"}, // operation: "dump", "restore"; outcome: "succeeded", "error"
	)

	ExecutorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgbackman_executor_duration_seconds",
			Help:    "Duration of a dump/restore executor run",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600, 7200},
		},
		[]string{"operation"},
	)

	ExecutorArtifactBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgbackman_executor_artifact_bytes",
			Help:    "Size in bytes of produced dump artifacts",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"code"}, // backup code: CLUSTER/FULL/SCHEMA/DATA
	)

	// Alerts metrics.
	AlertsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgbackman_alerts_delivered_total",
			Help: "Total number of alert emails delivered, by outcome",
		},
		[]string{"outcome"}, // "sent", "error"
	)

	AlertsPendingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgbackman_alerts_pending",
			Help: "Current number of unalerted ERROR rows across backup_catalog and restore_catalog",
		},
	)

	// System metrics.
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgbackman_info",
			Help: "Build information for the running pgbackman binary",
		},
		[]string{"version", "go_version"},
	)
)

// RecordCatalogQuery records a catalog query's duration and, on error,
// classifies it under errKind (the pgerr.Kind string).
func RecordCatalogQuery(operation string, duration time.Duration, errKind string) {
	CatalogQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errKind != "" {
		CatalogQueryErrors.WithLabelValues(operation, errKind).Inc()
	}
}

// RecordJobEnqueued increments the enqueue counter for kind.
func RecordJobEnqueued(kind string) {
	JobsEnqueuedTotal.WithLabelValues(kind).Inc()
}

// RecordJobDequeued increments the dequeue counter for kind.
func RecordJobDequeued(kind string) {
	JobsDequeuedTotal.WithLabelValues(kind).Inc()
}

// RecordJobFailed increments the failure counter for kind.
func RecordJobFailed(kind string) {
	JobsFailedTotal.WithLabelValues(kind).Inc()
}

// RecordCrontabRegeneration records a crontab regeneration attempt.
func RecordCrontabRegeneration(outcome string, duration time.Duration) {
	CrontabRegenerationsTotal.WithLabelValues(outcome).Inc()
	CrontabRegenerationDuration.Observe(duration.Seconds())
}

// RecordAtJobInstalled increments the at-job install counter for kind.
func RecordAtJobInstalled(kind string) {
	AtJobsInstalledTotal.WithLabelValues(kind).Inc()
}

// RecordPendingLogDrain records the outcome of draining one pending-log line.
func RecordPendingLogDrain(ok bool) {
	if ok {
		PendingLogLinesDrainedTotal.WithLabelValues("ok").Inc()
	} else {
		PendingLogLinesDrainedTotal.WithLabelValues("bad").Inc()
	}
}

// RecordExecutorRun records the outcome and duration of one executor run.
func RecordExecutorRun(operation string, succeeded bool, duration time.Duration) {
	outcome := "succeeded"
	if !succeeded {
		outcome = "error"
	}
	ExecutorRunsTotal.WithLabelValues(operation, outcome).Inc()
	ExecutorDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAlertDelivery records the outcome of one alert send attempt.
func RecordAlertDelivery(succeeded bool) {
	if succeeded {
		AlertsDeliveredTotal.WithLabelValues("sent").Inc()
	} else {
		AlertsDeliveredTotal.WithLabelValues("error").Inc()
	}
}
