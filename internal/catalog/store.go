package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/logging"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// Store wraps a pgxpool.Pool and provides the coordination engine's data
// access methods. One Store is shared by every goroutine in a process; the
// pool itself manages per-connection concurrency.
type Store struct {
	pool *pgxpool.Pool
	cfg  config.CatalogConfig
}

// Open connects to the catalog store described by cfg. It retries on
// connection failure every cfg.ConnectRetryInterval until ctx is cancelled.
func Open(ctx context.Context, cfg config.CatalogConfig) (*Store, error) {
	connString := buildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	var pool *pgxpool.Pool
	for {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				break
			} else {
				err = pingErr
				pool.Close()
			}
		}

		logging.Warn().Err(err).Dur("retry_in", cfg.ConnectRetryInterval).Msg("catalog unreachable, retrying")
		select {
		case <-ctx.Done():
			return nil, pgerr.Wrap(pgerr.KindDatabaseUnavailable, "open catalog store", ctx.Err())
		case <-time.After(cfg.ConnectRetryInterval):
		}
	}

	return &Store{pool: pool, cfg: cfg}, nil
}

func buildConnString(cfg config.CatalogConfig) string {
	host := cfg.Host
	if cfg.HostAddr != "" {
		host = cfg.HostAddr
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "prefer"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		host, cfg.Port, cfg.Name, cfg.User, cfg.Password, sslmode)
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool for components (e.g. the job
// queue) that need direct transaction control.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// VacuumCatalog runs VACUUM on the tables the maintenance loop churns
// heaviest (backup_catalog, restore_catalog, job_queue), on the coarser
// cadence configured by maintenance.vacuum_every. VACUUM cannot run inside a
// transaction block, so this issues three standalone statements.
func (s *Store) VacuumCatalog(ctx context.Context) error {
	for _, table := range []string{"backup_catalog", "restore_catalog", "job_queue"} {
		if _, err := s.pool.Exec(ctx, "VACUUM "+table); err != nil {
			return pgerr.Classify("vacuum "+table, err)
		}
	}
	return nil
}

// DatabaseVersionNumber returns the catalog schema version recorded in the
// metadata table, used by the schema migrator (internal/migrator) to decide
// whether an upgrade is required.
func (s *Store) DatabaseVersionNumber(ctx context.Context) (int, error) {
	var version int
	err := s.pool.QueryRow(ctx, `SELECT database_version_number FROM pgbackman_metadata LIMIT 1`).Scan(&version)
	if err != nil {
		return 0, pgerr.Classify("query database_version_number", err)
	}
	return version, nil
}

// SetDatabaseVersionNumber updates the recorded catalog schema version.
// Called by the migrator after each SQL file is applied.
func (s *Store) SetDatabaseVersionNumber(ctx context.Context, version int) error {
	_, err := s.pool.Exec(ctx, `UPDATE pgbackman_metadata SET database_version_number = $1`, version)
	return pgerr.Classify("update database_version_number", err)
}
