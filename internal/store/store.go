// Package store implements the local durable store: a transactional SQLite
// database holding the discovery cache table and the pending-mutation queue.
// It is the only resource shared between the page context and the detached
// sync agent; all cross-context coordination relies on its transaction
// isolation.
package store

import (
	"context"

	"github.com/mlaurent/avidex/internal/models"
)

// Store is the durable-store contract consumed by the sync orchestrator and
// the detached agent. All failures surface as *common.StorageError and are
// never retried internally; callers decide whether to retry.
type Store interface {
	// UpsertCacheEntries writes or overwrites one cache row per key,
	// stamping updated_at with the current time. The batch is atomic:
	// a failure applies none of it.
	UpsertCacheEntries(ctx context.Context, entries map[string]models.Discovery) error

	// ReadAllCacheEntries returns the full cache table keyed by entity key.
	ReadAllCacheEntries(ctx context.Context) (map[string]models.CacheEntry, error)

	// EnqueueMutation appends one pending queue row and upserts the same
	// record into the cache with synced=false, in a single transaction
	// spanning both tables. A record is never left only-queued or
	// only-cached.
	EnqueueMutation(ctx context.Context, entityKey string, record models.Discovery) error

	// ReadPendingMutations returns all pending queue rows oldest-first;
	// this is the commit order used by reconciliation.
	ReadPendingMutations(ctx context.Context) ([]models.QueueEntry, error)

	// MarkMutationSynced deletes the queue row by id and flips the cache
	// row's synced flag to true, in one transaction. A missing cache row
	// makes the flag update a no-op, not an error.
	MarkMutationSynced(ctx context.Context, queueID int64, entityKey string) error

	// CountPendingMutations counts pending rows via the status index
	// without loading row bodies. Used for UI badges.
	CountPendingMutations(ctx context.Context) (int, error)

	// ClearAll truncates both tables. Explicit user-initiated reset only.
	ClearAll(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error
}
