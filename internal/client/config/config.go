package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds runtime settings for the scenesync CLI.
type Config struct {
	ServerAddr  string
	AccessToken string

	CacheBackend string
	CachePath    string
	RedisAddr    string
	RedisPrefix  string

	S3Region   string
	S3Endpoint string
	S3User     string
	S3Password string
	S3Bucket   string

	Quiet          time.Duration
	MaxWait        time.Duration
	RetryInterval  time.Duration
	PreviewQuality int

	LogFile     string
	LogFormat   string
	LogLevel    string
	MetricsAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:50051"
	c.CacheBackend = BackendSQLite
	c.CachePath = "scenesync.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "scenesync:"
	c.S3Region = "us-east-1"
	c.S3Endpoint = "http://127.0.0.1:9000"
	c.S3Bucket = "scenes"
	c.Quiet = 2 * time.Second
	c.MaxWait = 10 * time.Second
	c.RetryInterval = 10 * time.Second
	c.PreviewQuality = 80
	c.LogFormat = "auto"
	c.LogLevel = "info"
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.Quiet <= 0 {
		return fmt.Errorf("quiet period must be positive")
	}
	if c.MaxWait < c.Quiet {
		return fmt.Errorf("max wait %s is shorter than quiet period %s", c.MaxWait, c.Quiet)
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		return fmt.Errorf("preview quality must be within 1..100")
	}
	return nil
}

// Load builds a Config from defaults, the JSON file named by the "config"
// flag, and the flags of fs that were set explicitly.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path, err := fs.GetString(FlagConfig); err == nil && path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
