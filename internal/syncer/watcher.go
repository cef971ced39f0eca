package syncer

import (
	"context"
	"time"

	"github.com/mlaurent/avidex/internal/logging"
	"github.com/mlaurent/avidex/internal/remote"
)

// Watcher mirrors the platform's connectivity signal by probing the remote
// authority on an interval and driving the orchestrator's transition
// handlers.
type Watcher struct {
	remote   remote.Client
	orch     *Orchestrator
	interval time.Duration
	log      logging.Logger
}

// NewWatcher builds a watcher probing every interval.
func NewWatcher(rc remote.Client, orch *Orchestrator, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{remote: rc, orch: orch, interval: interval, log: log}
}

// Run probes immediately and then on every tick until ctx ends. Each probe
// outcome is folded into the orchestrator; the online transition fires
// reconciliation by itself.
func (w *Watcher) Run(ctx context.Context) {
	w.probe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) probe(ctx context.Context) {
	if err := w.remote.Ping(ctx); err != nil {
		if w.orch.Online() {
			w.log.Info(ctx, "connectivity lost", "err", err)
		}
		w.orch.SetOffline()
		return
	}
	if !w.orch.Online() {
		w.log.Info(ctx, "connectivity restored")
	}
	w.orch.SetOnline(ctx)
}
