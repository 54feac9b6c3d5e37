// Package config loads runtime configuration for the scenesync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config.
//  3. Command-line flags registered by AddFlags, which override earlier
//     values when given explicitly.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "2s" or
// integer nanoseconds:
//
//	{
//	  "server_addr": "127.0.0.1:50051",
//	  "cache_backend": "sqlite",
//	  "cache_path": "scenesync.db",
//	  "s3_bucket": "scenes",
//	  "quiet": "2s",
//	  "max_wait": "10s"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
