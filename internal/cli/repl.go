package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mlaurent/avidex/internal/syncer"
)

// Run starts the read-eval-print loop and the connectivity watcher, and
// blocks until the user exits or ctx ends.
func (a *App) Run(ctx context.Context) {
	fmt.Println("avidex (type 'help' for commands)")

	watcher := syncer.NewWatcher(a.rc, a.orch, a.config.OnlineCheckInterval, a.log)
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watcher.Run(wctx)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("avidex %s> ", a.status())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: list, add <key>, birds, sync, status, reset, exit")

		case "l", "list":
			a.list(ctx)

		case "add":
			key := ""
			if len(args) > 0 {
				key = args[0]
			}
			a.add(ctx, key)

		case "birds":
			a.birds(ctx)

		case "sync":
			a.sync(ctx)

		case "status":
			fmt.Println(a.status())

		case "reset":
			a.reset(ctx)

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}

		// Give fire-and-forget event output a moment to land before the
		// next prompt.
		time.Sleep(10 * time.Millisecond)
	}
}
