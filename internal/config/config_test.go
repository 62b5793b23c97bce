package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 1000, cfg.CommandQueueSize)
	assert.Equal(t, 1000, cfg.RequestQueueSize)
	assert.Equal(t, time.Second, cfg.ResponseDelay)
	assert.Equal(t, 10*time.Second, cfg.Expiration)
	assert.Equal(t, 5, cfg.Retry)
	assert.Equal(t, "POST", cfg.Method)
	assert.Equal(t, ModeAsynchronous, cfg.Mode)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "callq.yaml", `
command_queue_size: 16
response_delay: 250ms
method: get
mode: synchronous
uri: http://localhost:8080/ajax
headers:
  X-Requested-With: callq
`)

	cfg, err := Load(Options{Path: path})
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.CommandQueueSize)
	assert.Equal(t, DefaultRequestQueueSize, cfg.RequestQueueSize)
	assert.Equal(t, 250*time.Millisecond, cfg.ResponseDelay)
	assert.Equal(t, "GET", cfg.Method)
	assert.Equal(t, ModeSynchronous, cfg.Mode)
	assert.Equal(t, "http://localhost:8080/ajax", cfg.URI)
	assert.Equal(t, "callq", cfg.Headers["X-Requested-With"])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "callq.yaml", "retry: 2\nmode: synchronous\n")

	t.Setenv(EnvRetry, "9")
	t.Setenv(EnvExpiration, "3s")

	cfg, err := Load(Options{Path: path})
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Retry)
	assert.Equal(t, 3*time.Second, cfg.Expiration)
	assert.Equal(t, ModeSynchronous, cfg.Mode)
}

func TestLoad_Dotenv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "CALLQ_URI=http://dotenv.test/ajax\n")

	// Register cleanup for the variable godotenv sets.
	t.Setenv(EnvURI, "")
	require.NoError(t, os.Unsetenv(EnvURI))

	cfg, err := Load(Options{DotenvPath: envPath})
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.test/ajax", cfg.URI)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	_, err := Load(Options{DotenvPath: filepath.Join(t.TempDir(), "absent.env")})
	assert.NoError(t, err)
}

func TestLoad_StrictEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty string", EnvMethod, ""},
		{"bad integer", EnvCommandQueueSize, "many"},
		{"bad duration", EnvResponseDelay, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero command queue", func(c *Config) { c.CommandQueueSize = 0 }},
		{"negative request queue", func(c *Config) { c.RequestQueueSize = -1 }},
		{"negative retry", func(c *Config) { c.Retry = -2 }},
		{"unknown method", func(c *Config) { c.Method = "PATCH" }},
		{"unknown mode", func(c *Config) { c.Mode = "eventual" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg)
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("request_queue_size: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.RequestQueueSize)

	_, err = Parse([]byte("mode: sometimes\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("mode: [unclosed"))
	assert.Error(t, err)
}
