// Package metrics defines the observability surface of the RPC client.
//
// Collection is opt-in. Until InitRegistry runs, constructors return no-op
// collectors and a client built without metrics records nothing.
//
// Usage:
//
//	metrics.InitRegistry()
//	m := prometheus.NewClientMetrics()
//	c, err := clnt.New(sock, addr, prog, vers, clnt.Options{Metrics: m})
//
// A nil Options.Metrics behaves like NewNoopClientMetrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Written once by InitRegistry, read everywhere else.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry that collectors and the
// metrics server share. Later calls do nothing.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the process-wide registry, or nil before
// InitRegistry.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
