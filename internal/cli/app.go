// Package cli is the interactive shell of the page execution context: a
// thin front end over the sync orchestrator, mirroring what the web pages
// do (save sightings, list them, show the pending badge).
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mlaurent/avidex/internal/cachepolicy"
	"github.com/mlaurent/avidex/internal/cachepolicy/partition"
	"github.com/mlaurent/avidex/internal/config"
	"github.com/mlaurent/avidex/internal/logging"
	"github.com/mlaurent/avidex/internal/metrics"
	"github.com/mlaurent/avidex/internal/models"
	"github.com/mlaurent/avidex/internal/notify"
	"github.com/mlaurent/avidex/internal/remote"
	"github.com/mlaurent/avidex/internal/store"
	"github.com/mlaurent/avidex/internal/syncer"
)

// App wires the page-context components together: local store, cache policy
// engine in front of the HTTP transport, remote client, orchestrator.
type App struct {
	config *config.Config
	orch   *syncer.Orchestrator
	st     store.Store
	rc     remote.Client
	log    logging.Logger
	reader *bufio.Reader
	unsub  func()
}

// NewApp constructs the page context. retry may be nil when no deferred
// retry capability is wired (the agent supplies one when co-hosted); bus is
// the broadcast channel listened to for agent outcomes.
func NewApp(ctx context.Context, cfg *config.Config, retry syncer.SyncRequester, bus notify.Broadcaster, log logging.Logger, m *metrics.Metrics) (*App, error) {
	st, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "err", err)
		return nil, err
	}

	parts, err := partition.NewFilesystem(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	engine := cachepolicy.New(http.DefaultTransport, parts, nil, cfg.CacheVersion, log, m)
	if err := engine.Activate(ctx); err != nil {
		return nil, err
	}
	// Best effort: a cold start with no connectivity still works, the
	// assets just stay uncached until the next launch.
	if err := engine.Precache(ctx, precacheManifest(cfg.ServerURL)); err != nil {
		log.Warn(ctx, "precache incomplete", "err", err)
	}

	rc, err := remote.NewHTTPClient(cfg.ServerURL, engine)
	if err != nil {
		return nil, err
	}

	orch := syncer.New(st, rc, retry, log, m)

	app := &App{
		config: cfg,
		orch:   orch,
		st:     st,
		rc:     rc,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}
	app.unsub = orch.Subscribe(app.onEvent)

	if bus != nil {
		msgs, cancel := bus.Subscribe()
		go func() {
			defer cancel()
			orch.ConsumeBroadcasts(ctx, msgs)
		}()
	}

	return app, nil
}

// precacheManifest lists the app-shell assets fetched at install time.
func precacheManifest(baseURL string) []string {
	paths := []string{
		"/static/app.js",
		"/static/style.css",
		"/static/manifest.json",
		"/static/icons/icon-192.png",
		"/static/icons/icon-512.png",
	}
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		urls = append(urls, baseURL+p)
	}
	return urls
}

// Orchestrator exposes the wired orchestrator, mainly for the watcher.
func (a *App) Orchestrator() *syncer.Orchestrator { return a.orch }

// Close tears the page context down.
func (a *App) Close() error {
	a.unsub()
	return a.st.Close()
}

// onEvent renders state transitions for the user. The offline/online saved
// distinction is the contract the UI depends on.
func (a *App) onEvent(ev syncer.Event) {
	switch ev.Type {
	case syncer.EventSaved:
		if ev.Offline {
			fmt.Println("Saved locally, will sync later")
		} else {
			fmt.Println("Saved")
		}
	case syncer.EventOnline:
		fmt.Println("Back online")
	case syncer.EventOffline:
		fmt.Println("Offline mode")
	case syncer.EventReconcileSuccess:
		fmt.Printf("Synced %d pending change(s)\n", ev.Count)
	case syncer.EventReconcileError:
		fmt.Printf("Sync failed: %s\n", ev.Reason)
	}
}

func (a *App) prompt(label string) string {
	fmt.Print(label)
	line, _ := a.reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *App) status() string {
	mode := "offline"
	if a.orch.Online() {
		mode = "online"
	}
	n, err := a.orch.PendingCount(context.Background())
	if err != nil || n == 0 {
		return fmt.Sprintf("(%s)", mode)
	}
	return fmt.Sprintf("(%s, %d pending)", mode, n)
}

func (a *App) list(ctx context.Context) {
	snap, err := a.orch.Load(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("%d discoveries (source: %s)\n", len(snap.Records), snap.Source)
	for key, record := range snap.Records {
		fmt.Printf("  #%s  %d photo(s)  %s\n", key, len(record.Photos), record.Description)
	}
}

func (a *App) add(ctx context.Context, key string) {
	if key == "" {
		fmt.Println("Usage: add <entity-key>")
		return
	}

	snap, err := a.orch.Load(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	record := snap.Records[key]
	record.EntityKey = key

	obs := models.Observation{
		Date:      a.prompt("Date (YYYY-MM-DD): "),
		Location:  a.prompt("Location: "),
		Note:      a.prompt("Note: "),
		PhotoData: a.prompt("Photo (base64): "),
		Sex:       models.Sex(a.prompt("Sex (male/female/unknown): ")),
	}
	if obs.Sex == "" {
		obs.Sex = models.SexUnknown
	}
	record.Photos = append(record.Photos, obs)

	if err := a.orch.Save(ctx, key, record); err != nil {
		fmt.Println("Error:", err)
	}
}

func (a *App) birds(ctx context.Context) {
	raw, err := a.rc.FetchSpecies(ctx)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	var species []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &species); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("%d species\n", len(species))
	for _, s := range species {
		fmt.Println(" ", s.Name)
	}
}

func (a *App) sync(ctx context.Context) {
	if err := a.orch.Reconcile(ctx); err != nil {
		fmt.Println("Error:", err)
	}
}

func (a *App) reset(ctx context.Context) {
	if a.prompt("Wipe all local data? (yes/no): ") != "yes" {
		return
	}
	if err := a.orch.Reset(ctx); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Local data cleared")
}
