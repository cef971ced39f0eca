package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name        string
		args        []string
		expectPanic bool
		expected    *Config
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-u", "http://127.0.0.1:9090", "-d", "local.db", "-i", "10"},
			expected: &Config{
				ServerURL:           "http://127.0.0.1:9090",
				DatabaseDSN:         "local.db",
				OnlineCheckInterval: 10 * time.Second,
			},
		},
		{
			name:        "incorrect check interval",
			args:        []string{"cmd", "-u", "http://127.0.0.1:9090", "-i", "abc"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config) })
			assert.Equal(t, tt.expected, config)
		})
	}
}
