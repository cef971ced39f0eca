// Package config loads runtime configuration for the sighting data layer.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-u string   base URL of the remote authority
//	-d string   path of the local SQLite database
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be
// either strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "database_dsn": "avidex.db",
//	  "cache_dir": "cachedata",
//	  "cache_version": "v1",
//	  "online_check_interval": "3s"
//	}
//
// Note: this package does not read environment variables; use the JSON
// file or flags.
package config
