// Package logging provides zerolog-based structured logging shared by every
// pgbackman daemon: controld, executor, the maintenance loop, the alerts
// loop, and the schema migrator.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
//	logging.Info().Msg("control daemon starting")
//
// # Daemon identity
//
// Each long-running daemon tags its logger once at startup:
//
//	logger := logging.WithDaemon("maintenance")
//
// and stores it in the context it passes down, so every downstream call
// logs under the same "daemon" field without threading a logger parameter:
//
//	ctx = logging.ContextWithLogger(ctx, logger)
//	logging.Ctx(ctx).Info().Msg("tick")
//
// # Operation and job correlation
//
// The CLI stamps a fresh operation id onto its context once per invocation
// (or once per interactive shell line); the control daemon stamps the
// catalog's job-queue row id onto the context it passes into processJob, so
// a job's retry history and its installAtJob/regenerateCrontab side effects
// share one job_id field:
//
//	ctx = logging.ContextWithNewOperationID(ctx)
//	ctx = logging.ContextWithJobID(ctx, job.JobID)
//	logging.Ctx(ctx).Error().Err(err).Msg("job failed, left in queue for retry")
//
// # slog adapter
//
// Suture's supervisor tree wants an slog.Logger; NewSlogHandlerWithLogger
// bridges a tagged zerolog.Logger into one:
//
//	slogLogger := slog.New(logging.NewSlogHandlerWithLogger(logging.WithDaemon("supervisor")))
//	tree, _ := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
//
// Always terminate log chains with .Msg() or .Send() — a chain built but
// never terminated is silently dropped.
package logging
