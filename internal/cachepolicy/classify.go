// Package cachepolicy intercepts every outgoing request, classifies its
// target resource and applies one of four caching strategies before the
// result reaches the caller. It sits transparently between the application
// and the network as an http.RoundTripper.
package cachepolicy

import (
	"net/http"
	"strings"
)

// Strategy is one of the four request-handling strategies.
type Strategy string

const (
	// StrategyBypass passes the request through untouched; no cache is
	// ever read or written. Applied to all non-idempotent methods.
	StrategyBypass Strategy = "bypass"

	// StrategyNetworkOnly always fetches fresh and never caches; serving
	// stale data for these resource classes is worse than failing.
	StrategyNetworkOnly Strategy = "network-only"

	// StrategyNetworkFirst tries the network, caching fresh results, and
	// falls back to the most recent cached copy on failure.
	StrategyNetworkFirst Strategy = "network-first"

	// StrategyCacheFirst serves the cached copy when present and only
	// fetches on a miss, caching successful responses.
	StrategyCacheFirst Strategy = "cache-first"
)

// Classifier maps a request to a strategy by static resource classes.
// First match wins, in the order: method, volatile, reference, static.
type Classifier struct {
	// VolatilePrefixes lists path prefixes of user-owned mutable data:
	// sighting records, session endpoints, per-user settings, sharing
	// tokens, administrative endpoints.
	VolatilePrefixes []string

	// ReferencePrefixes lists path prefixes of slow-moving reference data
	// such as the species taxonomy list.
	ReferencePrefixes []string

	// StaticPrefixes lists path prefixes of bundled assets and stored
	// photo binaries served by URL.
	StaticPrefixes []string

	// StaticSuffixes lists file extensions treated as static assets
	// wherever they are served from (bundled code, stylesheets,
	// third-party libraries).
	StaticSuffixes []string
}

// DefaultClassifier returns the classification used by the sighting app.
func DefaultClassifier() *Classifier {
	return &Classifier{
		VolatilePrefixes: []string{
			"/api/discoveries",
			"/api/auth/",
			"/api/theme",
			"/api/share",
			"/api/admin/",
			"/api/debug/",
		},
		ReferencePrefixes: []string{
			"/api/birds",
		},
		StaticPrefixes: []string{
			"/static/",
			"/api/photo/",
		},
		StaticSuffixes: []string{
			".js", ".css", ".png", ".jpg", ".svg", ".ico",
			".woff", ".woff2", ".json",
		},
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(path string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// Classify selects the strategy for req. Precedence, first match wins:
// non-read method → bypass; volatile class → network-only; reference class →
// network-first; static asset or bulk binary → cache-first; everything else
// → network-first.
func (c *Classifier) Classify(req *http.Request) Strategy {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return StrategyBypass
	}

	path := req.URL.Path
	switch {
	case hasAnyPrefix(path, c.VolatilePrefixes):
		return StrategyNetworkOnly
	case hasAnyPrefix(path, c.ReferencePrefixes):
		return StrategyNetworkFirst
	case hasAnyPrefix(path, c.StaticPrefixes), hasAnySuffix(path, c.StaticSuffixes):
		return StrategyCacheFirst
	default:
		return StrategyNetworkFirst
	}
}
