package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlaurent/avidex/internal/models"
)

func entry(id int64, key string, ts time.Time, note string) models.QueueEntry {
	return models.QueueEntry{
		ID:        id,
		EntityKey: key,
		Record:    record(note),
		Timestamp: ts,
		Status:    models.QueueStatusPending,
	}
}

func TestCollapse(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pending []models.QueueEntry
		want    map[string]string
	}{
		{
			name:    "empty",
			pending: nil,
			want:    map[string]string{},
		},
		{
			name: "distinct keys all survive",
			pending: []models.QueueEntry{
				entry(1, "001", base, "a"),
				entry(2, "002", base.Add(time.Second), "b"),
			},
			want: map[string]string{"001": "a", "002": "b"},
		},
		{
			name: "newest timestamp wins per key",
			pending: []models.QueueEntry{
				entry(1, "007", base, "old"),
				entry(2, "007", base.Add(2*time.Second), "new"),
				entry(3, "007", base.Add(time.Second), "middle"),
			},
			want: map[string]string{"007": "new"},
		},
		{
			name: "equal timestamps break ties by id",
			pending: []models.QueueEntry{
				entry(5, "007", base, "later insert"),
				entry(3, "007", base, "earlier insert"),
			},
			want: map[string]string{"007": "later insert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := Collapse(tt.pending)
			require.Len(t, batch, len(tt.want))
			for key, note := range tt.want {
				require.Contains(t, batch, key)
				assert.Equal(t, note, batch[key].Photos[0].Note)
			}
		})
	}
}

func TestReconcilePending_ClearsSupersededRowsToo(t *testing.T) {
	st := setupStore(t)
	rc := &fakeRemote{}
	ctx := context.Background()

	require.NoError(t, st.EnqueueMutation(ctx, "007", record("old")))
	require.NoError(t, st.EnqueueMutation(ctx, "007", record("new")))
	require.NoError(t, st.EnqueueMutation(ctx, "012", record("other")))

	pending, err := st.ReadPendingMutations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	cleared, err := ReconcilePending(ctx, st, rc, pending)
	require.NoError(t, err)
	assert.Equal(t, 3, cleared, "superseded rows are cleared by the same pass")

	n, err := st.CountPendingMutations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Equal(t, 1, rc.pushCount(), "one batched request for the whole queue")
	assert.Len(t, rc.pushes[0], 2)
}

func TestReconcilePending_PushFailureClearsNothing(t *testing.T) {
	st := setupStore(t)
	rc := &fakeRemote{pushErr: context.DeadlineExceeded}
	ctx := context.Background()

	require.NoError(t, st.EnqueueMutation(ctx, "007", record("p1")))

	pending, err := st.ReadPendingMutations(ctx)
	require.NoError(t, err)

	cleared, err := ReconcilePending(ctx, st, rc, pending)
	require.Error(t, err)
	assert.Zero(t, cleared)

	n, err := st.CountPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
