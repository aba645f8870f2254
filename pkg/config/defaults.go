package config

import (
	"os"
	"strings"
	"time"

	"github.com/marmos91/dittorpc/internal/protocol/rpc"
	"github.com/marmos91/dittorpc/pkg/clnt"
)

// DefaultCallTimeout bounds a call when the configuration does not.
const DefaultCallTimeout = 25 * time.Second

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Flavor-specific defaults are filled into every flavor section
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyClientDefaults(&cfg.Client)
	applyTransportDefaults(&cfg.Transport)
	applyAuthDefaults(&cfg.Auth)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyClientDefaults sets client handle defaults. The default target is
// the port mapper, which every ONC RPC host runs.
func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Program == 0 {
		cfg.Program = rpc.ProgramPortmap
	}
	if cfg.Version == 0 {
		cfg.Version = 2
	}
	if cfg.RetryTimeout == 0 {
		cfg.RetryTimeout = clnt.DefaultRetryTimeout
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.MaxSendRate > 0 && cfg.SendBurst == 0 {
		cfg.SendBurst = 1
	}
	if cfg.WaitChan == "" {
		cfg.WaitChan = clnt.DefaultWaitChan
	}
	// SendSize and RecvSize default to 0 (transport default)
}

// applyTransportDefaults sets transport defaults.
func applyTransportDefaults(cfg *TransportConfig) {
	if cfg.Network == "" {
		cfg.Network = "udp"
	}
	// LocalAddress defaults to "" (ephemeral port on all interfaces)
}

// applyAuthDefaults sets authentication defaults.
func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Flavor == "" {
		cfg.Flavor = "none"
	}

	if cfg.Unix == nil {
		cfg.Unix = make(map[string]any)
	}

	// Apply defaults for every flavor (for config file generation)
	if _, ok := cfg.Unix["machine_name"]; !ok {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "localhost"
		}
		cfg.Unix["machine_name"] = hostname
	}
	if _, ok := cfg.Unix["uid"]; !ok {
		cfg.Unix["uid"] = uint32(os.Getuid())
	}
	if _, ok := cfg.Unix["gid"]; !ok {
		cfg.Unix["gid"] = uint32(os.Getgid())
	}
	if _, ok := cfg.Unix["gids"]; !ok {
		cfg.Unix["gids"] = []uint32{}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Auth: AuthConfig{
			Unix: make(map[string]any),
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
