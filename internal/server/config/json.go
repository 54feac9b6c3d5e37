package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/scenesync/internal/flagx"
	"github.com/dmitrijs2005/scenesync/internal/timex"
)

// JsonConfig is the DTO read from the JSON config file. Durations accept
// both "1h" style strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	MetricsAddr                 string         `json:"metrics_addr"`
	LogFormat                   string         `json:"log_format"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson overlays config with the JSON file named by -c or -config in
// args. Without either flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.MetricsAddr = c.MetricsAddr
	config.LogFormat = c.LogFormat
	config.LogLevel = c.LogLevel
	return nil
}
