package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/scenesync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent
// fields leave the corresponding Config value untouched.
type JsonConfig struct {
	ServerAddr  string `json:"server_addr"`
	AccessToken string `json:"access_token"`

	CacheBackend string `json:"cache_backend"`
	CachePath    string `json:"cache_path"`
	RedisAddr    string `json:"redis_addr"`
	RedisPrefix  string `json:"redis_prefix"`

	S3Region   string `json:"s3_region"`
	S3Endpoint string `json:"s3_endpoint"`
	S3User     string `json:"s3_user"`
	S3Password string `json:"s3_password"`
	S3Bucket   string `json:"s3_bucket"`

	Quiet          *timex.Duration `json:"quiet"`
	MaxWait        *timex.Duration `json:"max_wait"`
	RetryInterval  *timex.Duration `json:"retry_interval"`
	PreviewQuality int             `json:"preview_quality"`

	LogFile     string `json:"log_file"`
	LogFormat   string `json:"log_format"`
	LogLevel    string `json:"log_level"`
	MetricsAddr string `json:"metrics_addr"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays cfg with the values found in the JSON file at path.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerAddr, jc.ServerAddr)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.CacheBackend, jc.CacheBackend)
	setString(&cfg.CachePath, jc.CachePath)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RedisPrefix, jc.RedisPrefix)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3User, jc.S3User)
	setString(&cfg.S3Password, jc.S3Password)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)

	if jc.Quiet != nil {
		cfg.Quiet = jc.Quiet.Duration
	}
	if jc.MaxWait != nil {
		cfg.MaxWait = jc.MaxWait.Duration
	}
	if jc.RetryInterval != nil {
		cfg.RetryInterval = jc.RetryInterval.Duration
	}
	if jc.PreviewQuality != 0 {
		cfg.PreviewQuality = jc.PreviewQuality
	}
	return nil
}
