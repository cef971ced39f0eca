package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mlaurent/avidex/internal/common"
	"github.com/mlaurent/avidex/internal/logging"
	"github.com/mlaurent/avidex/internal/metrics"
	"github.com/mlaurent/avidex/internal/models"
	"github.com/mlaurent/avidex/internal/notify"
	"github.com/mlaurent/avidex/internal/remote"
	"github.com/mlaurent/avidex/internal/store"
)

// SyncRequester registers a deferred reconciliation request with the
// platform's retry capability, tagged so the detached agent knows what woke
// it. Best-effort: absence of the capability is not an error.
type SyncRequester interface {
	RequestSync(ctx context.Context, tag string) error
}

// Snapshot is the result of Load: the full entity mapping plus where it
// came from.
type Snapshot struct {
	Records map[string]models.Discovery
	Source  Source
}

// Orchestrator mediates between online and offline operation. It is the
// sole writer of the store's two tables within its execution context and
// the only component pages call directly. Construct one explicitly per
// process and inject it; there is no package-level instance.
type Orchestrator struct {
	store   store.Store
	remote  remote.Client
	retry   SyncRequester // may be nil
	log     logging.Logger
	metrics *metrics.Metrics

	online      atomic.Bool
	reconciling atomic.Bool

	mu      sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New builds an orchestrator. retry may be nil when the platform offers no
// deferred-retry capability; m may be nil to skip metrics.
func New(st store.Store, rc remote.Client, retry SyncRequester, log logging.Logger, m *metrics.Metrics) *Orchestrator {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Orchestrator{
		store:   st,
		remote:  rc,
		retry:   retry,
		log:     log,
		metrics: m,
		subs:    make(map[int]func(Event)),
	}
}

// Online reports the current connectivity state.
func (o *Orchestrator) Online() bool { return o.online.Load() }

// Reconciling reports whether a reconciliation pass is executing.
func (o *Orchestrator) Reconciling() bool { return o.reconciling.Load() }

// Subscribe registers fn on the single broadcast stream; it is invoked
// synchronously on every state transition. The returned function cancels
// the subscription.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

func (o *Orchestrator) publish(ev Event) {
	o.mu.Lock()
	fns := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// SetOnline records the platform's online transition and fires a
// reconciliation automatically. Reconciliation errors are handled by
// Reconcile's own error path and only logged here.
func (o *Orchestrator) SetOnline(ctx context.Context) {
	if o.online.Swap(true) {
		return
	}
	o.publish(Event{Type: EventOnline})

	if err := o.Reconcile(ctx); err != nil {
		o.log.Error(ctx, "auto reconcile failed", "err", err)
	}
}

// SetOffline records the platform's offline transition. No other side
// effect.
func (o *Orchestrator) SetOffline() {
	if !o.online.Swap(false) {
		return
	}
	o.publish(Event{Type: EventOffline})
}

// Save persists record under entityKey: remotely when online, locally
// queued when offline or when the push fails. Storage errors propagate
// unmodified; network errors only ever divert to the offline path.
func (o *Orchestrator) Save(ctx context.Context, entityKey string, record models.Discovery) error {
	if o.Online() {
		err := o.remote.Push(ctx, map[string]models.Discovery{entityKey: record})
		if err == nil {
			// Read-through cache of the accepted value.
			if err := o.store.UpsertCacheEntries(ctx, map[string]models.Discovery{entityKey: record}); err != nil {
				return err
			}
			o.metrics.SavesTotal.WithLabelValues("online").Inc()
			o.publish(Event{Type: EventSaved, Offline: false})
			return nil
		}
		if !errors.Is(err, common.ErrNetwork) && !errors.Is(err, common.ErrServerRejected) {
			return err
		}
		o.log.Warn(ctx, "push failed, saving offline", "entity", entityKey, "err", err)
	}

	if err := o.store.EnqueueMutation(ctx, entityKey, record); err != nil {
		return err
	}
	o.metrics.SavesTotal.WithLabelValues("offline").Inc()
	o.refreshPendingGauge(ctx)
	o.publish(Event{Type: EventSaved, Offline: true})

	if o.retry != nil {
		// Best effort: the platform may refuse or lack the capability.
		if err := o.retry.RequestSync(ctx, common.SyncTag); err != nil {
			o.log.Warn(ctx, "deferred sync registration failed", "err", err)
		}
	}
	return nil
}

// Load returns the full entity set: fresh from the remote authority when
// online (overwriting the local cache), from the local cache otherwise.
func (o *Orchestrator) Load(ctx context.Context) (*Snapshot, error) {
	if o.Online() {
		records, err := o.remote.FetchAll(ctx)
		if err == nil {
			if err := o.store.UpsertCacheEntries(ctx, records); err != nil {
				return nil, err
			}
			return &Snapshot{Records: records, Source: SourceRemote}, nil
		}
		o.log.Warn(ctx, "remote fetch failed, serving local cache", "err", err)
	}

	entries, err := o.store.ReadAllCacheEntries(ctx)
	if err != nil {
		return nil, err
	}
	records := make(map[string]models.Discovery, len(entries))
	for key, entry := range entries {
		records[key] = entry.Record
	}
	return &Snapshot{Records: records, Source: SourceLocal}, nil
}

// Reconcile transmits all pending mutations as one batch and clears them on
// success. No-op while offline or while another pass is in flight in this
// execution context. Push failures are reported only through the event
// stream; storage failures are also returned.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	if !o.Online() {
		return nil
	}
	if !o.reconciling.CompareAndSwap(false, true) {
		// Another pass is executing; its completion triggers any
		// follow-up.
		return nil
	}
	defer func() {
		o.reconciling.Store(false)
		o.publish(Event{Type: EventReconcileEnd})
	}()

	o.publish(Event{Type: EventReconcileStart})

	pending, err := o.store.ReadPendingMutations(ctx)
	if err != nil {
		o.publish(Event{Type: EventReconcileError, Reason: err.Error()})
		return err
	}
	if len(pending) == 0 {
		o.metrics.ReconcilesTotal.WithLabelValues("noop").Inc()
		return nil
	}

	count, err := ReconcilePending(ctx, o.store, o.remote, pending)
	if err != nil {
		o.metrics.ReconcilesTotal.WithLabelValues("error").Inc()
		o.publish(Event{Type: EventReconcileError, Reason: err.Error()})
		if common.IsStorageError(err) {
			return err
		}
		// Network or server failure: the queue is untouched and the
		// next online transition or platform retry tries again.
		return nil
	}

	o.metrics.ReconcilesTotal.WithLabelValues("success").Inc()
	o.refreshPendingGauge(ctx)
	o.publish(Event{Type: EventReconcileSuccess, Count: count})
	return nil
}

// PendingCount returns the queue depth for UI badges.
func (o *Orchestrator) PendingCount(ctx context.Context) (int, error) {
	return o.store.CountPendingMutations(ctx)
}

// Reset wipes both local tables. Explicit user-initiated reset only.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if err := o.store.ClearAll(ctx); err != nil {
		return err
	}
	o.refreshPendingGauge(ctx)
	return nil
}

// ConsumeBroadcasts applies messages from the detached agent: the work
// already happened in the other context, so only observable state is
// refreshed here. Returns when ctx ends or msgs closes.
func (o *Orchestrator) ConsumeBroadcasts(ctx context.Context, msgs <-chan notify.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			o.refreshPendingGauge(ctx)
			switch msg.Kind {
			case notify.KindSyncComplete:
				o.publish(Event{Type: EventReconcileSuccess, Count: msg.Count})
			case notify.KindSyncError:
				o.publish(Event{Type: EventReconcileError, Reason: msg.Reason})
			}
		}
	}
}

func (o *Orchestrator) refreshPendingGauge(ctx context.Context) {
	n, err := o.store.CountPendingMutations(ctx)
	if err != nil {
		o.log.Warn(ctx, "pending count failed", "err", err)
		return
	}
	o.metrics.PendingMutations.Set(float64(n))
}
