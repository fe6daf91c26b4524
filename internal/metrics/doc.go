/*
Package metrics provides Prometheus metrics collection and export for observability.

This package defines counters, gauges, and histograms, using the Prometheus
client library, for job-queue throughput, crontab regeneration, pending-log
drain activity, retention, executor outcomes, and alert delivery, together
with Record helpers that update them. The control daemon serves them at
/metrics and sets pgbackman_info; no daemon calls the Record helpers, so the
other collectors are exported but not updated.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:9187/metrics

# Usage Example

	import (
	    "github.com/pgbackman/pgbackman/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    start := time.Now()
	    err := store.InsertBackupCatalog(ctx, row)
	    metrics.RecordCatalogQuery("insert_backup_catalog", time.Since(start), pgerr.KindOf(err))
	}

# Cardinality

Label sets are bounded by construction: job kind, executor operation, and
alert outcome are all small fixed enumerations, never freeform strings such
as node FQDNs or definition IDs.
*/
package metrics
