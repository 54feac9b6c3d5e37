package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

const (
	FlagConfig         = "config"
	FlagServer         = "server"
	FlagToken          = "token"
	FlagCacheBackend   = "cache-backend"
	FlagCachePath      = "cache-path"
	FlagRedisAddr      = "redis-addr"
	FlagRedisPrefix    = "redis-prefix"
	FlagS3Region       = "s3-region"
	FlagS3Endpoint     = "s3-endpoint"
	FlagS3User         = "s3-user"
	FlagS3Password     = "s3-password"
	FlagS3Bucket       = "s3-bucket"
	FlagQuiet          = "quiet"
	FlagMaxWait        = "max-wait"
	FlagRetry          = "retry"
	FlagPreviewQuality = "preview-quality"
	FlagLogFile        = "log-file"
	FlagLogFormat      = "log-format"
	FlagLogLevel       = "log-level"
)

// AddFlags registers the client flags on fs, with defaults shown in help.
func AddFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to JSON config file")
	fs.StringP(FlagServer, "a", d.ServerAddr, "address and port of the scene store")
	fs.String(FlagToken, "", "access token (overrides the one saved by login)")
	fs.String(FlagCacheBackend, d.CacheBackend, "local cache backend: sqlite or redis")
	fs.String(FlagCachePath, d.CachePath, "SQLite cache file")
	fs.String(FlagRedisAddr, d.RedisAddr, "Redis address for the redis cache backend")
	fs.String(FlagRedisPrefix, d.RedisPrefix, "key prefix for the redis cache backend")
	fs.String(FlagS3Region, d.S3Region, "attachment store region")
	fs.String(FlagS3Endpoint, d.S3Endpoint, "attachment store endpoint")
	fs.String(FlagS3User, "", "attachment store access key")
	fs.String(FlagS3Password, "", "attachment store secret key")
	fs.String(FlagS3Bucket, d.S3Bucket, "attachment store bucket")
	fs.Duration(FlagQuiet, d.Quiet, "quiet period before a push")
	fs.Duration(FlagMaxWait, d.MaxWait, "longest delay of a push during continuous editing")
	fs.Duration(FlagRetry, d.RetryInterval, "delay before retrying a failed push")
	fs.Int(FlagPreviewQuality, d.PreviewQuality, "JPEG quality of cached previews")
	fs.String(FlagLogFile, "", "write logs to this rotated file instead of stderr")
	fs.String(FlagLogFormat, d.LogFormat, "log format: auto, text or json")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn or error")
}

// applyFlags copies the explicitly set flags of fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagServer:
			cfg.ServerAddr, err = fs.GetString(f.Name)
		case FlagToken:
			cfg.AccessToken, err = fs.GetString(f.Name)
		case FlagCacheBackend:
			cfg.CacheBackend, err = fs.GetString(f.Name)
		case FlagCachePath:
			cfg.CachePath, err = fs.GetString(f.Name)
		case FlagRedisAddr:
			cfg.RedisAddr, err = fs.GetString(f.Name)
		case FlagRedisPrefix:
			cfg.RedisPrefix, err = fs.GetString(f.Name)
		case FlagS3Region:
			cfg.S3Region, err = fs.GetString(f.Name)
		case FlagS3Endpoint:
			cfg.S3Endpoint, err = fs.GetString(f.Name)
		case FlagS3User:
			cfg.S3User, err = fs.GetString(f.Name)
		case FlagS3Password:
			cfg.S3Password, err = fs.GetString(f.Name)
		case FlagS3Bucket:
			cfg.S3Bucket, err = fs.GetString(f.Name)
		case FlagQuiet:
			cfg.Quiet, err = fs.GetDuration(f.Name)
		case FlagMaxWait:
			cfg.MaxWait, err = fs.GetDuration(f.Name)
		case FlagRetry:
			cfg.RetryInterval, err = fs.GetDuration(f.Name)
		case FlagPreviewQuality:
			cfg.PreviewQuality, err = fs.GetInt(f.Name)
		case FlagLogFile:
			cfg.LogFile, err = fs.GetString(f.Name)
		case FlagLogFormat:
			cfg.LogFormat, err = fs.GetString(f.Name)
		case FlagLogLevel:
			cfg.LogLevel, err = fs.GetString(f.Name)
		}
		if err != nil {
			err = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return err
}
