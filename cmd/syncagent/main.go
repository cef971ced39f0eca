package main

import (
	"context"
	"log"

	_ "modernc.org/sqlite"

	"github.com/mlaurent/avidex/internal/agent"
	"github.com/mlaurent/avidex/internal/config"
	"github.com/mlaurent/avidex/internal/logging"
	"github.com/mlaurent/avidex/internal/notify"
	"github.com/mlaurent/avidex/internal/remote"
	"github.com/mlaurent/avidex/internal/store"
)

// Standalone detached reconciler: invoked by an external scheduler in the
// way the platform would wake the background context, it performs one
// reconciliation pass against the shared database and exits.
func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	logger := logging.NewDefault("agent")

	st, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer st.Close()

	rc, err := remote.NewHTTPClient(cfg.ServerURL, nil)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// No pages listen in standalone mode, but publishing keeps the code
	// path identical; messages are simply dropped.
	ag := agent.New(st, rc, notify.NewBus(), logger)
	ag.RunOnce(ctx)
}
