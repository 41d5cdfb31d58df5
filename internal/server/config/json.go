package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. Durations use
// timex.Duration so both "720h" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from a zero value.
type JsonConfig struct {
	EndpointAddrGRPC      *string         `json:"endpoint_addr_grpc"`
	MetricsAddr           *string         `json:"metrics_addr"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	SessionStrategy       *string         `json:"session_strategy"`
	Debug                 *bool           `json:"debug"`
	StorageBackend        *string         `json:"storage_backend"`
}

// parseJson overlays values from the JSON file named by -c/-config.
// Keys missing from the file leave the corresponding field untouched.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&config.MetricsAddr, c.MetricsAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.SessionStrategy, c.SessionStrategy)
	setIf(&config.Debug, c.Debug)
	setIf(&config.StorageBackend, c.StorageBackend)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
