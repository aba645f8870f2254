package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete dittorpc client configuration.
//
// This structure captures all configurable aspects of the client including:
//   - Logging configuration
//   - Metrics exposure
//   - Client handle settings (program, version, timers, modes)
//   - Local transport endpoint
//   - Authentication flavor selection and flavor-specific configuration
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTORPC_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Auth Configuration Pattern:
// Each authentication flavor defines its own configuration type decoded by a
// factory function. The Auth section contains flavor-specific maps (e.g.
// auth.unix) and only the one matching the selected flavor is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Client contains the settings applied to every client handle
	Client ClientConfig `mapstructure:"client" yaml:"client"`

	// Transport describes the local UDP endpoint
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`

	// Auth selects the authentication flavor and its configuration
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MetricsConfig controls the metrics HTTP endpoint.
type MetricsConfig struct {
	// Enabled turns on Prometheus collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// ClientConfig holds the settings of a client handle.
type ClientConfig struct {
	// Program and Version identify the remote RPC program
	Program uint32 `mapstructure:"program" yaml:"program"`
	Version uint32 `mapstructure:"version" yaml:"version"`

	// RetryTimeout is the first retransmit interval; it doubles on every
	// retransmission up to the backoff ceiling
	RetryTimeout time.Duration `mapstructure:"retry_timeout" yaml:"retry_timeout" validate:"gt=0"`

	// CallTimeout bounds each call, retransmissions included
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout" validate:"gte=0"`

	// Interruptible lets cancellation (Ctrl-C) abort a waiting call
	Interruptible bool `mapstructure:"interruptible" yaml:"interruptible"`

	// Connect connects the socket to the server before the first call
	Connect bool `mapstructure:"connect" yaml:"connect"`

	// Async enables async mode on new handles
	Async bool `mapstructure:"async" yaml:"async"`

	// MaxSendRate caps datagrams per second per handle (0 = unlimited)
	MaxSendRate uint `mapstructure:"max_send_rate" yaml:"max_send_rate"`

	// SendBurst is the token bucket size used with MaxSendRate
	SendBurst uint `mapstructure:"send_burst" yaml:"send_burst"`

	// SendSize and RecvSize bound request and reply datagrams
	// (0 = transport default)
	SendSize int `mapstructure:"send_size" yaml:"send_size" validate:"gte=0,lte=65507"`
	RecvSize int `mapstructure:"recv_size" yaml:"recv_size" validate:"gte=0,lte=65507"`

	// WaitChan tags waits in the logs
	WaitChan string `mapstructure:"wait_chan" yaml:"wait_chan"`
}

// TransportConfig describes the local UDP endpoint.
type TransportConfig struct {
	// Network selects the address family
	// Valid values: udp, udp4, udp6
	Network string `mapstructure:"network" yaml:"network" validate:"required,oneof=udp udp4 udp6"`

	// LocalAddress is the bind address (empty = ephemeral port)
	LocalAddress string `mapstructure:"local_address" yaml:"local_address"`

	// ReusePort binds with SO_REUSEPORT
	ReusePort bool `mapstructure:"reuse_port" yaml:"reuse_port"`

	// SendBufferSize and RecvBufferSize size the kernel socket buffers
	SendBufferSize int `mapstructure:"send_buffer_size" yaml:"send_buffer_size" validate:"gte=0"`
	RecvBufferSize int `mapstructure:"recv_buffer_size" yaml:"recv_buffer_size" validate:"gte=0"`
}

// AuthConfig specifies the authentication flavor.
//
// The Flavor field determines which authenticator is built.
// Only the corresponding flavor-specific section is used.
type AuthConfig struct {
	// Flavor specifies the authentication flavor
	// Valid values: none, unix
	Flavor string `mapstructure:"flavor" yaml:"flavor" validate:"required,oneof=none unix"`

	// Unix contains AUTH_SYS configuration
	// Only used when Flavor = "unix"
	Unix map[string]any `mapstructure:"unix" yaml:"unix"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTORPC_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys lists the scalar settings that can be overridden from the
// environment even when the config file does not mention them.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"metrics.enabled",
	"metrics.port",
	"client.program",
	"client.version",
	"client.retry_timeout",
	"client.call_timeout",
	"client.interruptible",
	"client.connect",
	"client.async",
	"client.max_send_rate",
	"client.send_burst",
	"client.send_size",
	"client.recv_size",
	"client.wait_chan",
	"transport.network",
	"transport.local_address",
	"transport.reuse_port",
	"transport.send_buffer_size",
	"transport.recv_buffer_size",
	"auth.flavor",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use DITTORPC_ prefix and underscores
	// Example: DITTORPC_CLIENT_RETRY_TIMEOUT=500ms
	v.SetEnvPrefix("DITTORPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/dittorpc/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittorpc")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittorpc")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
