package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mlaurent/avidex/internal/agent"
	"github.com/mlaurent/avidex/internal/cli"
	"github.com/mlaurent/avidex/internal/config"
	"github.com/mlaurent/avidex/internal/logging"
	"github.com/mlaurent/avidex/internal/metrics"
	"github.com/mlaurent/avidex/internal/notify"
	"github.com/mlaurent/avidex/internal/remote"
	"github.com/mlaurent/avidex/internal/store"
)

// The binary hosts both execution contexts: the interactive page context
// and the detached sync agent. They share no in-process state beyond the
// broadcast bus; each opens its own store handle and remote client.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()
	logger := logging.NewDefault("page")
	m := metrics.New(prometheus.NewRegistry())

	bus := notify.NewBus()

	agentStore, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer agentStore.Close()

	agentRemote, err := remote.NewHTTPClient(cfg.ServerURL, nil)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ag := agent.New(agentStore, agentRemote, bus, logging.NewDefault("agent"))

	app, err := cli.NewApp(ctx, cfg, ag, bus, logger, m)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ag.Run(gctx)
	})
	g.Go(func() error {
		app.Run(gctx)
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Printf("%v", err)
	}
}
