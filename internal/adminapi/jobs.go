package adminapi

import (
	"context"

	"github.com/pgbackman/pgbackman/internal/catalog/jobqueue"
)

// ShowJobsQueue lists every pending JobQueue row addressed to serverID.
func (a *API) ShowJobsQueue(ctx context.Context, serverID int64) ([]jobqueue.Job, error) {
	return jobqueue.FetchForServer(ctx, a.store.Pool(), serverID)
}
