// Package remote implements the client for the remote authority's HTTP API.
// The API itself is an external collaborator; only the entity-collection
// endpoints, the reference species list and a reachability probe are
// consumed here.
package remote

import (
	"context"
	"encoding/json"

	"github.com/mlaurent/avidex/internal/models"
)

// Client is the remote-authority contract consumed by the sync orchestrator
// and the detached agent.
type Client interface {
	// FetchAll returns the full current mapping entityKey → record.
	FetchAll(ctx context.Context) (map[string]models.Discovery, error)

	// Push upserts the given keys server-side. Partial maps are allowed;
	// the same call serves the direct save path and the batched
	// reconciliation path.
	Push(ctx context.Context, records map[string]models.Discovery) error

	// FetchSpecies returns the static reference taxonomy list. The payload
	// is opaque to the data layer and handed to the caller as raw JSON.
	FetchSpecies(ctx context.Context) (json.RawMessage, error)

	// Ping reports whether the remote authority is reachable. Any
	// completed HTTP exchange counts as reachable; only transport
	// failures count against it.
	Ping(ctx context.Context) error
}
