package cachepolicy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mlaurent/avidex/internal/cachepolicy/partition"
	"github.com/mlaurent/avidex/internal/logging"
	"github.com/mlaurent/avidex/internal/metrics"
)

const (
	classRuntime  = "runtime"
	classPrecache = "precache"
)

// Engine applies the four caching strategies in front of a base transport.
// Network-first and cache-first write into the runtime partition, kept separate from the
// install-time precache so their eviction policies can differ; both carry
// the engine's version tag and are dropped wholesale when a new version
// activates.
type Engine struct {
	base       http.RoundTripper
	store      partition.Store
	classifier *Classifier
	version    string
	log        logging.Logger
	metrics    *metrics.Metrics
}

// New builds an engine. base may be nil for http.DefaultTransport;
// classifier may be nil for DefaultClassifier.
func New(base http.RoundTripper, store partition.Store, classifier *Classifier, version string, log logging.Logger, m *metrics.Metrics) *Engine {
	if base == nil {
		base = http.DefaultTransport
	}
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Engine{
		base:       base,
		store:      store,
		classifier: classifier,
		version:    version,
		log:        log,
		metrics:    m,
	}
}

func (e *Engine) runtimePartition() string  { return partition.Name(classRuntime, e.version) }
func (e *Engine) precachePartition() string { return partition.Name(classPrecache, e.version) }

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// RoundTrip implements http.RoundTripper.
func (e *Engine) RoundTrip(req *http.Request) (*http.Response, error) {
	strategy := e.classifier.Classify(req)

	switch strategy {
	case StrategyBypass, StrategyNetworkOnly:
		// Pass through; failures propagate unchanged and no cache is
		// touched either way.
		e.count(strategy, "bypass")
		return e.base.RoundTrip(req)
	case StrategyCacheFirst:
		return e.cacheFirst(req)
	default:
		return e.networkFirst(req)
	}
}

func (e *Engine) cacheFirst(req *http.Request) (*http.Response, error) {
	key := cacheKey(req)

	if resp, ok := e.lookup(req, key); ok {
		e.count(StrategyCacheFirst, "hit")
		return resp, nil
	}

	resp, err := e.base.RoundTrip(req)
	if err != nil {
		e.count(StrategyCacheFirst, "miss")
		return nil, err
	}
	// Only a successful response is worth keeping.
	if resp.StatusCode == http.StatusOK {
		resp = e.cacheResponse(req, key, resp)
	}
	e.count(StrategyCacheFirst, "miss")
	return resp, nil
}

func (e *Engine) networkFirst(req *http.Request) (*http.Response, error) {
	key := cacheKey(req)

	resp, err := e.base.RoundTrip(req)
	if err == nil {
		if resp.StatusCode == http.StatusOK {
			resp = e.cacheResponse(req, key, resp)
		}
		e.count(StrategyNetworkFirst, "miss")
		return resp, nil
	}

	// Network failed: swallow the error if a cached copy exists.
	if cached, ok := e.lookup(req, key); ok {
		e.count(StrategyNetworkFirst, "hit")
		return cached, nil
	}
	e.count(StrategyNetworkFirst, "miss")
	return nil, err
}

// lookup searches the precache first, then the runtime partition.
func (e *Engine) lookup(req *http.Request, key string) (*http.Response, bool) {
	ctx := req.Context()
	for _, part := range []string{e.precachePartition(), e.runtimePartition()} {
		cached, err := e.store.Get(ctx, part, key)
		if err == nil {
			return replay(req, cached), true
		}
		if !partition.IsNotFound(err) {
			e.log.Warn(ctx, "cache lookup failed", "partition", part, "err", err)
		}
	}
	return nil, false
}

// cacheResponse stores resp in the runtime partition and returns an
// equivalent response whose body is still readable by the caller.
func (e *Engine) cacheResponse(req *http.Request, key string, resp *http.Response) *http.Response {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		e.log.Warn(req.Context(), "reading response for cache failed", "key", key, "err", err)
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp
	}

	cached := &partition.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
	if err := e.store.Put(req.Context(), e.runtimePartition(), key, cached); err != nil {
		// A failed cache write must not fail the request.
		e.log.Warn(req.Context(), "cache write failed", "key", key, "err", err)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp
}

// replay materializes a cached entry as an *http.Response.
func replay(req *http.Request, cached *partition.Response) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", cached.StatusCode, http.StatusText(cached.StatusCode)),
		StatusCode:    cached.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        cached.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(cached.Body)),
		ContentLength: int64(len(cached.Body)),
		Request:       req,
	}
}

// Precache fetches every URL in the manifest through the base transport and
// fills the install-time precache partition. Individual failures are logged
// and skipped; precaching is opportunistic.
func (e *Engine) Precache(ctx context.Context, manifest []string) error {
	for _, url := range manifest {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("precache %s: %w", url, err)
		}

		resp, err := e.base.RoundTrip(req)
		if err != nil {
			e.log.Warn(ctx, "precache fetch failed", "url", url, "err", err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			e.log.Warn(ctx, "precache skipped", "url", url, "status", resp.StatusCode, "err", err)
			continue
		}

		cached := &partition.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
		if err := e.store.Put(ctx, e.precachePartition(), cacheKey(req), cached); err != nil {
			return fmt.Errorf("precache %s: %w", url, err)
		}
	}
	return nil
}

// Activate deletes every cache partition whose version tag differs from the
// engine's. This whole-partition generational eviction is the only
// migration mechanism for the response caches.
func (e *Engine) Activate(ctx context.Context) error {
	current := map[string]struct{}{
		e.runtimePartition():  {},
		e.precachePartition(): {},
	}

	names, err := e.store.ListPartitions(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := current[name]; ok {
			continue
		}
		if err := e.store.DeletePartition(ctx, name); err != nil {
			return err
		}
		if e.metrics != nil {
			e.metrics.PartitionsEvicted.Inc()
		}
		e.log.Info(ctx, "evicted stale cache partition", "partition", name)
	}
	return nil
}

func (e *Engine) count(strategy Strategy, result string) {
	if e.metrics != nil {
		e.metrics.CacheRequestsTotal.WithLabelValues(string(strategy), result).Inc()
	}
}
