package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/mlaurent/avidex/internal/common"
	"github.com/mlaurent/avidex/internal/models"
)

const (
	discoveriesPath = "/api/discoveries"
	speciesPath     = "/api/birds"
	probePath       = "/api/auth/me"
)

// HTTPClient talks to the remote authority over its JSON API. Session state
// is ambient (cookie-based): the jar is attached to every request, so the
// caller never handles credentials explicitly.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for the authority at baseURL. transport
// becomes the underlying RoundTripper, which is how the cache policy engine
// is slotted in front of every outgoing request; pass nil for the default
// transport.
func NewHTTPClient(baseURL string, transport http.RoundTripper) (*HTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL: baseURL,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s %s: %s: %s", common.ErrServerRejected, method, path, resp.Status, string(b))
	}
	return resp, nil
}

func (c *HTTPClient) FetchAll(ctx context.Context) (map[string]models.Discovery, error) {
	resp, err := c.do(ctx, http.MethodGet, discoveriesPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result map[string]models.Discovery
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode discoveries: %w", err)
	}
	for key, record := range result {
		record.EntityKey = key
		result[key] = record
	}
	return result, nil
}

func (c *HTTPClient) Push(ctx context.Context, records map[string]models.Discovery) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode discoveries: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, discoveriesPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *HTTPClient) FetchSpecies(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, speciesPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read species list: %w", err)
	}
	return json.RawMessage(data), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+probePath, nil)
	if err != nil {
		return err
	}

	// The probe only cares about reachability: an auth failure still means
	// the network is up.
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	return resp.Body.Close()
}
