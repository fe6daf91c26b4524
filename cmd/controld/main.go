// Command controld is the per-backup-server coordination daemon: it drains
// any spooled pending-log entries, polls its JobQueue for CRONTAB,
// AT_SNAPSHOT, AT_RESTORE, and DELETE_ARTIFACT work, and runs the periodic
// maintenance and alerting loops under a shared suture supervisor tree, per
// spec.md §4.2-§4.7. One controld process runs per registered BackupServer,
// identified by its own FQDN.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pgbackman/pgbackman/internal/alerts"
	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/logging"
	"github.com/pgbackman/pgbackman/internal/maintenance"
	"github.com/pgbackman/pgbackman/internal/metrics"
	"github.com/pgbackman/pgbackman/internal/migrator"
	"github.com/pgbackman/pgbackman/internal/supervisor"
)

// softwareVersionNumber is the schema version this build expects, compared
// against the catalog's database_version_number at startup.
const softwareVersionNumber = 1

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().Msg("starting pgbackman control daemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open catalog store")
	}
	defer store.Close()

	if err := (migrator.New(store, cfg.Executor.DatabaseSourceDir, cfg.ControlDaemon.PendingUpdatesDir)).
		CheckAndMigrate(ctx, softwareVersionNumber, false); err != nil {
		logging.Fatal().Err(err).Msg("schema version check failed")
	}

	fqdn := cfg.Server.BackupServerFQDN
	if fqdn == "" {
		if h, hostErr := os.Hostname(); hostErr == nil {
			fqdn = h
		}
	}

	slogLogger := slog.New(logging.NewSlogHandlerWithLogger(logging.WithDaemon("supervisor")))
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	daemon := newControlDaemon(store, fqdn, cfg)
	tree.AddControlDaemon(daemon)

	maintLoop := maintenance.New(store, cfg.Maintenance.Interval, cfg.Maintenance.AutomaticDeletionRetention,
		cfg.Maintenance.RestoreCatalogMaxAge, cfg.Maintenance.VacuumEvery)
	tree.AddBackgroundService(maintLoop)

	if cfg.SMTP.AlertsEnabled {
		alertsLoop, err := alerts.New(store, cfg.SMTP.CheckInterval, alerts.SMTPConfig{
			Server:             cfg.SMTP.Server,
			Port:               cfg.SMTP.Port,
			SSL:                cfg.SMTP.SSL,
			User:               cfg.SMTP.User,
			Password:           cfg.SMTP.Password,
			FromAddress:        cfg.SMTP.FromAddress,
			AlertsTemplatePath: cfg.SMTP.AlertsTemplatePath,
		}, splitAddresses(cfg.SMTP.AlertsTo))
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to build alerts loop")
		}
		tree.AddBackgroundService(alertsLoop)
	} else {
		logging.Info().Msg("SMTP alerting disabled (smtp_alerts=false)")
	}

	metrics.AppInfo.WithLabelValues("dev", "go").Set(1)
	go serveMetrics()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}
	logging.Info().Msg("control daemon stopped")
}

func serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":9187", Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("metrics server stopped")
	}
}

func splitAddresses(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	return addrs
}
