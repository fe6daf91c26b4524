// Package maintenance implements the periodic retention/cleanup loop of
// spec.md §4.5: for every definition with catalog rows, it keeps the most
// recent retention_redundancy SUCCEEDED rows unconditionally and expires the
// rest once they are older than retention_period plus a configured grace
// window, emitting a DELETE_ARTIFACT job per expired row. It also prunes
// orphaned job-queue rows, purges old RestoreCatalog rows, and vacuums the
// catalog on a coarser cadence.
package maintenance

import (
	"context"
	"time"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/catalog/jobqueue"
	"github.com/pgbackman/pgbackman/internal/logging"
)

// Loop is the suture.Service implementation of the maintenance daemon.
type Loop struct {
	store                      *catalog.Store
	interval                   time.Duration
	automaticDeletionRetention time.Duration
	restoreCatalogMaxAge       time.Duration
	vacuumEvery                int

	ticks int
}

// New builds a Loop.
func New(store *catalog.Store, interval, automaticDeletionRetention, restoreCatalogMaxAge time.Duration, vacuumEvery int) *Loop {
	if vacuumEvery <= 0 {
		vacuumEvery = 24
	}
	return &Loop{
		store: store, interval: interval,
		automaticDeletionRetention: automaticDeletionRetention,
		restoreCatalogMaxAge:       restoreCatalogMaxAge,
		vacuumEvery:                vacuumEvery,
	}
}

// String implements fmt.Stringer.
func (l *Loop) String() string { return "maintenance-loop" }

// Serve implements suture.Service.
func (l *Loop) Serve(ctx context.Context) error {
	ctx = logging.ContextWithLogger(ctx, logging.WithDaemon("maintenance"))
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.tick(ctx); err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("maintenance tick failed")
			}
		}
	}
}

func (l *Loop) tick(ctx context.Context) error {
	if err := l.enforceRetention(ctx); err != nil {
		return err
	}

	if n, err := jobqueue.PruneOrphaned(ctx, l.store.Pool()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("prune orphaned jobs failed")
	} else if n > 0 {
		logging.Ctx(ctx).Info().Int64("count", n).Msg("pruned orphaned job-queue rows")
	}

	if l.restoreCatalogMaxAge > 0 {
		cutoff := time.Now().Add(-l.restoreCatalogMaxAge)
		if n, err := l.store.PruneOldRestoreCatalog(ctx, cutoff); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("prune old restore catalog failed")
		} else if n > 0 {
			logging.Ctx(ctx).Info().Int64("count", n).Msg("purged old restore catalog rows")
		}
	}

	l.ticks++
	if l.ticks%l.vacuumEvery == 0 {
		if err := l.store.VacuumCatalog(ctx); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("catalog vacuum failed")
		}
	}
	return nil
}

// enforceRetention implements spec.md §4.5's per-definition rule: keep the
// first retention_redundancy rows unconditionally, expire the rest once
// older than retention_period + AutomaticDeletionRetention.
func (l *Loop) enforceRetention(ctx context.Context) error {
	defIDs, err := l.store.DefinitionIDsWithCatalogRows(ctx)
	if err != nil {
		return err
	}

	for _, defID := range defIDs {
		def, err := l.store.BackupDefinitionByID(ctx, defID)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Int64("def_id", defID).Msg("retention: definition lookup failed")
			continue
		}

		rows, err := l.store.RetentionCandidates(ctx, defID)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Int64("def_id", defID).Msg("retention: catalog row lookup failed")
			continue
		}

		expired := selectExpired(rows, def.RetentionRedundancy, def.RetentionPeriod, l.automaticDeletionRetention, time.Now())
		for _, row := range expired {
			if err := jobqueue.EnqueueDeleteArtifact(ctx, l.store.Pool(), def.BackupServerID, row.BckID, artifactPaths(row)); err != nil {
				logging.Ctx(ctx).Error().Err(err).Int64("bck_id", row.BckID).Msg("retention: enqueue delete_artifact failed")
			}
		}
	}
	return nil
}

// selectExpired returns the rows (already ordered by RetentionCandidates in
// descending finished time) that are beyond the first redundancy rows AND
// older than retentionPeriod+grace.
func selectExpired(rows []catalog.BackupCatalog, redundancy int, retentionPeriod, grace time.Duration, now time.Time) []catalog.BackupCatalog {
	if redundancy < 0 {
		redundancy = 0
	}
	if redundancy >= len(rows) {
		return nil
	}

	var expired []catalog.BackupCatalog
	for _, row := range rows[redundancy:] {
		if now.Sub(row.Finished) > retentionPeriod+grace {
			expired = append(expired, row)
		}
	}
	return expired
}

func artifactPaths(row catalog.BackupCatalog) []string {
	var paths []string
	for _, p := range []string{row.DumpFile, row.DumpLogFile, row.GlobalsFile, row.GlobalsLogFile, row.IndexesFile, row.IndexesLogFile} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
