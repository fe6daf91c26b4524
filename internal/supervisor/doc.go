/*
Package supervisor provides process supervision for pgbackman using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running daemons in a pgbackman control-node process.
It provides Erlang/OTP-style supervision with automatic restart, failure
isolation, and graceful shutdown.

# Overview

The supervisor tree organizes services into two layers for failure isolation:

	RootSupervisor ("pgbackman")
	├── ControlSupervisor ("control-layer")
	│   └── one controldaemon.Daemon per registered backup server
	└── BackgroundSupervisor ("background-layer")
	    ├── maintenance.Loop (retention, vacuum, orphan pruning)
	    └── alerts.Loop (unalerted-error email delivery)

This hierarchy ensures that:
  - A crash in one backup server's control daemon doesn't stall another
    backup server's crontab regeneration
  - Catalog housekeeping (retention, alerts) restarts independently of any
    individual control daemon
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

Basic setup in a daemon's main.go:

	import (
	    "log/slog"
	    "github.com/pgbackman/pgbackman/internal/supervisor"
	)

	func main() {
	    logger := slog.Default()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    for _, server := range registeredBackupServers {
	        tree.AddControlDaemon(controldaemon.New(store, server.FQDN, ...))
	    }
	    tree.AddBackgroundService(maintenance.New(store, ...))
	    tree.AddBackgroundService(alertsLoop)

	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("supervisor stopped: %v", err)
	    }
	}

Background operation:

	errChan := tree.ServeBackground(ctx)
	// ... other setup ...
	if err := <-errChan; err != nil {
	    log.Printf("supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,              // Failures before backoff
	    FailureDecay:     30.0,             // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's production-ready defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Failure Handling

The supervisor uses a failure counter with exponential decay:

1. Each service failure increments the counter
2. Counter decays exponentially over time (FailureDecay seconds)
3. When counter exceeds FailureThreshold, supervisor enters backoff
4. During backoff, restarts are delayed by FailureBackoff duration
5. If failures continue, the child supervisor may be restarted by parent

Note this is independent of the control daemon's own catalog-unreachable
backoff (see internal/controldaemon): that backoff governs retrying a poll
tick inside a single Serve call, while this one governs how often suture
restarts Serve itself after it returns an error.

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# Debugging Shutdown Issues

If services don't stop within the timeout:

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service didn't stop: %v", svc)
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines (pgx queries without a
    context deadline, at(1)/atq subprocesses without CommandContext)
  - Mutex or advisory-lock deadlocks during shutdown

# Thread Safety

The SupervisorTree is safe for concurrent use:
  - Services can be added from any goroutine (e.g. when a new backup
    server is registered at runtime)
  - Remove operations are synchronized
  - Multiple services can crash simultaneously

# See Also

  - internal/controldaemon: per-backup-server control daemon
  - internal/maintenance: retention/vacuum/pruning loop
  - internal/alerts: unalerted-error email delivery loop
  - github.com/thejerf/suture/v4: underlying library
*/
package supervisor
