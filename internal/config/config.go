package config

import "time"

// Config holds runtime settings shared by the page client and the detached
// sync agent.
//
// Fields:
//   - ServerURL: base URL of the remote authority.
//   - DatabaseDSN: path of the local SQLite database.
//   - CacheDir: root directory of the response-cache partitions.
//   - CacheVersion: version tag for cache partitions; activation deletes
//     partitions with a different tag.
//   - OnlineCheckInterval: how often connectivity is probed.
type Config struct {
	ServerURL           string
	DatabaseDSN         string
	CacheDir            string
	CacheVersion        string
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.DatabaseDSN = "avidex.db"
	c.CacheDir = "cachedata"
	c.CacheVersion = "v1"
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
