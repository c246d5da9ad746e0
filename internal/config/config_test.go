package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "viralwarn.yml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, 60*time.Second, c.FetchInterval)
	assert.Equal(t, 0.45, c.RiskThreshold)
	assert.Equal(t, 200, c.MaxEventsStored)
	assert.Equal(t, 3*time.Second, c.Evidence.Timeout)
	assert.True(t, c.UseHeavyModels)
	assert.Equal(t, "http", c.Inference.Backend)
	assert.NoError(t, c.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
fetch_interval: 30s
risk_threshold: 0.6
max_events_stored: 50
use_heavy_models: false
evidence:
  timeout: 2s
feeds:
  - name: Example
    url: https://example.com/rss
    group: reputed
`)

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, c.FetchInterval)
	assert.Equal(t, 0.6, c.RiskThreshold)
	assert.Equal(t, 50, c.MaxEventsStored)
	assert.False(t, c.UseHeavyModels)
	assert.Equal(t, 2*time.Second, c.Evidence.Timeout)
	require.Len(t, c.Feeds, 1)
	assert.Equal(t, "Example", c.Feeds[0].Name)
	// untouched sections keep their defaults
	assert.Equal(t, "https://en.wikipedia.org/w/api.php", c.Evidence.Endpoint)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NEWSAPI_KEY", "secret")
	t.Setenv("VIRALWARN_LISTEN", "127.0.0.1:9999")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", c.NewsAPI.APIKey)
	assert.Equal(t, "127.0.0.1:9999", c.Listen)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"threshold above one", "risk_threshold: 1.5"},
		{"unknown backend", "inference:\n  backend: grpc"},
		{"feed without url", "feeds:\n  - name: nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
