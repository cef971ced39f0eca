// Package agent runs the detached reconciliation path: the execution
// context the platform wakes independently of any open page. It owns its
// own store and remote handles (no shared memory with pages) and reports
// outcomes over the broadcast bus so pages can refresh their badges without
// re-running the work.
package agent

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mlaurent/avidex/internal/common"
	"github.com/mlaurent/avidex/internal/logging"
	"github.com/mlaurent/avidex/internal/notify"
	"github.com/mlaurent/avidex/internal/remote"
	"github.com/mlaurent/avidex/internal/store"
	"github.com/mlaurent/avidex/internal/syncer"
)

// Agent is the detached background reconciler.
type Agent struct {
	store store.Store
	rc    remote.Client
	bus   notify.Broadcaster
	log   logging.Logger

	// trigger carries at most one outstanding wake-up; coalescing extra
	// requests matches the platform's own retry semantics.
	trigger chan string

	// retryBase and retryMax bound the backoff between push attempts.
	retryBase time.Duration
	retryMax  time.Duration
}

// New builds an agent with its own store and remote handles.
func New(st store.Store, rc remote.Client, bus notify.Broadcaster, log logging.Logger) *Agent {
	return &Agent{
		store:     st,
		rc:        rc,
		bus:       bus,
		log:       log,
		trigger:   make(chan string, 1),
		retryBase: 2 * time.Second,
		retryMax:  5 * time.Minute,
	}
}

// RequestSync implements syncer.SyncRequester: it registers a deferred
// reconciliation, waking the run loop. Requests arriving while one is
// already registered coalesce into it.
func (a *Agent) RequestSync(ctx context.Context, tag string) error {
	select {
	case a.trigger <- tag:
	default:
	}
	return nil
}

// Run services deferred-retry wake-ups until ctx ends.
func (a *Agent) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tag := <-a.trigger:
			if tag != common.SyncTag {
				a.log.Warn(ctx, "ignoring unknown sync tag", "tag", tag)
				continue
			}
			a.runPass(ctx)
		}
	}
}

// RunOnce performs a single reconciliation pass immediately, as when the
// platform wakes the detached context directly with the sync tag.
func (a *Agent) RunOnce(ctx context.Context) {
	a.runPass(ctx)
}

// runPass reads the pending set once and pushes it, retrying transient
// network failures with fibonacci backoff at the platform's discretion.
// Whatever the outcome, a broadcast tells open pages what happened.
func (a *Agent) runPass(ctx context.Context) {
	pending, err := a.store.ReadPendingMutations(ctx)
	if err != nil {
		a.log.Error(ctx, "reading pending mutations failed", "err", err)
		a.bus.Publish(notify.NewMessage(notify.KindSyncError, 0, err.Error()))
		return
	}
	if len(pending) == 0 {
		a.log.Debug(ctx, "nothing to reconcile")
		return
	}

	backoff := retry.WithMaxDuration(a.retryMax, retry.NewFibonacci(a.retryBase))

	var cleared int
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		n, err := syncer.ReconcilePending(ctx, a.store, a.rc, pending)
		if err != nil {
			if common.IsStorageError(err) {
				// Storage failures are never retried.
				return err
			}
			a.log.Warn(ctx, "push failed, will retry", "err", err)
			return retry.RetryableError(err)
		}
		cleared = n
		return nil
	})
	if err != nil {
		a.log.Error(ctx, "background reconcile failed", "err", err)
		a.bus.Publish(notify.NewMessage(notify.KindSyncError, 0, err.Error()))
		return
	}

	a.log.Info(ctx, "background reconcile done", "cleared", cleared)
	a.bus.Publish(notify.NewMessage(notify.KindSyncComplete, cleared, ""))
}
