package config

import (
	"github.com/marmos91/dittorpc/pkg/metrics"
	promMetrics "github.com/marmos91/dittorpc/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// ClientMetrics is the collector for client handles (never nil, uses noop if disabled)
	ClientMetrics metrics.ClientMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates the Prometheus-backed client collector
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns a no-op collector (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Server:        nil,
			ClientMetrics: metrics.NewNoopClientMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:        server,
		ClientMetrics: promMetrics.NewClientMetrics(),
	}
}
