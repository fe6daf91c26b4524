package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCatalogQuery(t *testing.T) {
	RecordCatalogQuery("insert_backup_catalog", 10*time.Millisecond, "")
	RecordCatalogQuery("insert_backup_catalog", 50*time.Millisecond, "database_unavailable")
}

func TestRecordJobLifecycle(t *testing.T) {
	for _, kind := range []string{"regenerate_crontab", "install_at_snapshot", "install_at_restore", "delete_artifact"} {
		RecordJobEnqueued(kind)
		RecordJobDequeued(kind)
	}
	RecordJobFailed("install_at_snapshot")
}

func TestRecordCrontabRegeneration(t *testing.T) {
	RecordCrontabRegeneration("written", 5*time.Millisecond)
	RecordCrontabRegeneration("unchanged", time.Millisecond)
	RecordCrontabRegeneration("error", 2*time.Millisecond)
}

func TestRecordAtJobInstalled(t *testing.T) {
	RecordAtJobInstalled("snapshot")
	RecordAtJobInstalled("restore")
}

func TestRecordPendingLogDrain(t *testing.T) {
	RecordPendingLogDrain(true)
	RecordPendingLogDrain(false)
}

func TestRecordExecutorRun(t *testing.T) {
	RecordExecutorRun("dump", true, 90*time.Second)
	RecordExecutorRun("dump", false, 3*time.Second)
	RecordExecutorRun("restore", true, 4*time.Minute)
}

func TestRecordAlertDelivery(t *testing.T) {
	RecordAlertDelivery(true)
	RecordAlertDelivery(false)
}

func TestGaugeMetrics(t *testing.T) {
	CatalogConnectionPoolInUse.Set(3)
	JobQueueDepth.WithLabelValues("backup01.example.com").Set(7)
	AlertsPendingGauge.Set(2)
	AppInfo.WithLabelValues("7", "go1.25.4").Set(1)
}

func TestCounterMetrics(t *testing.T) {
	JobsOrphanedPrunedTotal.Inc()
	PendingLogLinesAppendedTotal.Inc()
	PendingLogFilesDeletedTotal.Inc()
	RetentionDeletionsTotal.Inc()
	RestoreCatalogPurgedTotal.Inc()
	CatalogVacuumsTotal.Inc()
}

func TestExecutorArtifactBytes(t *testing.T) {
	for _, code := range []string{"CLUSTER", "FULL", "SCHEMA", "DATA"} {
		ExecutorArtifactBytes.WithLabelValues(code).Observe(1 << 20)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	const goroutines = 50
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			RecordJobDequeued("regenerate_crontab")
			RecordCatalogQuery("fetch_for_server", time.Millisecond, "")
			RecordExecutorRun("dump", true, time.Second)
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		CatalogQueryDuration,
		CatalogQueryErrors,
		CatalogConnectionPoolInUse,
		JobsEnqueuedTotal,
		JobsDequeuedTotal,
		JobsFailedTotal,
		JobQueueDepth,
		JobsOrphanedPrunedTotal,
		CrontabRegenerationsTotal,
		CrontabRegenerationDuration,
		AtJobsInstalledTotal,
		PendingLogLinesAppendedTotal,
		PendingLogLinesDrainedTotal,
		PendingLogFilesDeletedTotal,
		RetentionDeletionsTotal,
		RestoreCatalogPurgedTotal,
		CatalogVacuumsTotal,
		ExecutorRunsTotal,
		ExecutorDuration,
		ExecutorArtifactBytes,
		AlertsDeliveredTotal,
		AlertsPendingGauge,
		AppInfo,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("metric has no descriptors")
		}
	}
}

func TestMetricGathering(t *testing.T) {
	RecordCatalogQuery("test", time.Millisecond, "")
	RecordExecutorRun("dump", true, time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("metric lint problem: %s", p.Text)
	}
}

func BenchmarkRecordCatalogQuery(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordCatalogQuery("insert_backup_catalog", 10*time.Millisecond, "")
	}
}

func BenchmarkRecordExecutorRun(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordExecutorRun("dump", true, time.Second)
	}
}
