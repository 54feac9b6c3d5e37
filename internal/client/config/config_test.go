package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerAddr)
	assert.Equal(t, BackendSQLite, c.CacheBackend)
	assert.Equal(t, 2*time.Second, c.Quiet)
	assert.Equal(t, 10*time.Second, c.MaxWait)
	assert.Equal(t, 10*time.Second, c.RetryInterval)
	assert.NoError(t, c.Validate())
}

func TestLoad_NoSources(t *testing.T) {
	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, cfg)
}

func TestLoad_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"server_addr": "json:1",
		"cache_path":  "/tmp/json.db",
		"quiet":       "1s",
	})

	cfg, err := Load(newFlagSet(t, "--config", path, "-a", "flag:2", "--max-wait", "30s"))
	require.NoError(t, err)

	assert.Equal(t, "flag:2", cfg.ServerAddr)
	assert.Equal(t, "/tmp/json.db", cfg.CachePath)
	assert.Equal(t, time.Second, cfg.Quiet)
	assert.Equal(t, 30*time.Second, cfg.MaxWait)
}

func TestLoad_DefaultFlagValuesDoNotClobberJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{"s3_bucket": "from-json"})

	cfg, err := Load(newFlagSet(t, "-c", path))
	require.NoError(t, err)
	assert.Equal(t, "from-json", cfg.S3Bucket)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(newFlagSet(t, "--cache-backend", "memcached"))
	assert.Error(t, err)

	_, err = Load(newFlagSet(t, "--quiet", "5s", "--max-wait", "1s"))
	assert.Error(t, err)

	_, err = Load(newFlagSet(t, "--preview-quality", "0"))
	assert.Error(t, err)

	_, err = Load(newFlagSet(t, "--config", "/does/not/exist.json"))
	assert.Error(t, err)
}
