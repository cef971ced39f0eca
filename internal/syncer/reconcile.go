package syncer

import (
	"context"

	"github.com/mlaurent/avidex/internal/models"
	"github.com/mlaurent/avidex/internal/remote"
	"github.com/mlaurent/avidex/internal/store"
)

// Collapse reduces pending queue rows to one snapshot per entity key. When
// several rows share a key the one with the greatest timestamp wins, ids
// breaking ties; older rows are logically superseded, not separately
// applied. This is deliberate last-by-timestamp semantics, not an accident
// of map iteration order.
func Collapse(pending []models.QueueEntry) map[string]models.Discovery {
	winners := make(map[string]models.QueueEntry, len(pending))
	for _, entry := range pending {
		prev, ok := winners[entry.EntityKey]
		if !ok || entry.Timestamp.After(prev.Timestamp) ||
			(entry.Timestamp.Equal(prev.Timestamp) && entry.ID > prev.ID) {
			winners[entry.EntityKey] = entry
		}
	}

	batch := make(map[string]models.Discovery, len(winners))
	for key, entry := range winners {
		batch[key] = entry.Record
	}
	return batch
}

// ReconcilePending pushes the collapsed batch in one request and, on
// success, clears every included queue row. On failure the queue is left
// untouched: the batch is all-or-nothing from the queue's perspective.
// Returns the number of rows cleared.
//
// Both execution contexts run this against their own store and remote
// handles; the page path wraps it in Orchestrator.Reconcile, the detached
// agent calls it directly.
func ReconcilePending(ctx context.Context, st store.Store, rc remote.Client, pending []models.QueueEntry) (int, error) {
	batch := Collapse(pending)
	if len(batch) == 0 {
		return 0, nil
	}

	if err := rc.Push(ctx, batch); err != nil {
		return 0, err
	}

	cleared := 0
	for _, entry := range pending {
		if _, ok := batch[entry.EntityKey]; !ok {
			continue
		}
		// A row already deleted by the other context is a no-op here.
		if err := st.MarkMutationSynced(ctx, entry.ID, entry.EntityKey); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}
