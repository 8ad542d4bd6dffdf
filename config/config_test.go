package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("relayd", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
	assert.Equal(t, 20, cfg.NameLength)
	assert.Equal(t, BackendFilesystem, cfg.Storage.Backend)
	assert.Equal(t, "./files", cfg.Storage.Dir)
	assert.Equal(t, int64(0), cfg.Upload.MaxBytes)
	assert.Empty(t, cfg.Upload.AcceptedMIMEs)
	assert.Equal(t, 5, cfg.Upload.MaxAttempts)
	assert.Equal(t, 0.0, cfg.RateLimit.RPS)
	assert.Equal(t, "", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Gops)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("RELAY_ADDR", "0.0.0.0:9000")
	t.Setenv("RELAY_STORAGE_DIR", "/srv/relay")
	t.Setenv("RELAY_UPLOAD_MAX_BYTES", "1048576")
	t.Setenv("RELAY_UPLOAD_ACCEPTED_MIMES", "image/gif,image/png")
	t.Setenv("RELAY_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "/srv/relay", cfg.Storage.Dir)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"image/gif", "image/png"}, cfg.Upload.AcceptedMIMEs)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("RELAY_ADDR", "0.0.0.0:9000")
	t.Setenv("RELAY_LOG_LEVEL", "debug")

	cfg, err := Load(newFlags(t, "--addr", "127.0.0.1:7000", "--backend", "memory"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: 127.0.0.1:8181
name_length: 32
storage:
  backend: s3
  s3:
    endpoint: http://minio:9000
    bucket: relay
rate_limit:
  rps: 50
  burst: 10
`), 0600))

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8181", cfg.Addr)
	assert.Equal(t, 32, cfg.NameLength)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "http://minio:9000", cfg.Storage.S3.Endpoint)
	assert.Equal(t, "relay", cfg.Storage.S3.Bucket)
	assert.Equal(t, 50.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load(nil)
		require.NoError(t, err)
		return cfg
	}
	table := map[string]func(*Config){
		"no_addr":          func(c *Config) { c.Addr = "" },
		"zero_name_length": func(c *Config) { c.NameLength = 0 },
		"unknown_backend":  func(c *Config) { c.Storage.Backend = "tape" },
		"no_dir":           func(c *Config) { c.Storage.Dir = "" },
		"s3_no_bucket":     func(c *Config) { c.Storage.Backend = BackendS3; c.Storage.S3.Endpoint = "minio:9000" },
		"negative_max":     func(c *Config) { c.Upload.MaxBytes = -1 },
		"zero_attempts":    func(c *Config) { c.Upload.MaxAttempts = 0 },
		"negative_rps":     func(c *Config) { c.RateLimit.RPS = -1 },
		"bad_log_level":    func(c *Config) { c.LogLevel = "loud" },
	}
	for id, mutate := range table {
		t.Run(id, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.Storage.Backend = BackendMemory
	cfg.Storage.Dir = ""
	assert.NoError(t, cfg.Validate())
}
