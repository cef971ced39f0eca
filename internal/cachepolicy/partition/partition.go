// Package partition stores cached HTTP responses in versioned partitions.
// A partition is the unit of eviction: on activation of a new version every
// partition with a non-matching tag is deleted wholesale. There is no
// per-entry LRU.
package partition

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mlaurent/avidex/internal/common"
)

// Response is one cached HTTP exchange, sufficient to replay the response
// without touching the network.
type Response struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// Store is the partition-storage contract. Implementations: filesystem
// (durable, the normal case) and memory (tests).
type Store interface {
	// Get returns the cached response for key in the named partition, or
	// common.ErrNotFound on a miss.
	Get(ctx context.Context, partition, key string) (*Response, error)

	// Put writes the response under key, creating the partition if needed.
	Put(ctx context.Context, partition, key string, resp *Response) error

	// DeletePartition removes a whole partition; deleting an absent
	// partition is a no-op.
	DeletePartition(ctx context.Context, partition string) error

	// ListPartitions names the currently existing partitions.
	ListPartitions(ctx context.Context) ([]string, error)
}

// Name builds a partition name from its class ("runtime", "precache") and a
// version tag.
func Name(class, version string) string {
	return class + "-" + version
}

// Version extracts the version tag from a partition name built by Name.
func Version(name string) string {
	if i := strings.Index(name, "-"); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
