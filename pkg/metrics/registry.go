// Package metrics defines the observability surface for drawfsd: an
// interface implementations collect against, plus the process-wide
// Prometheus registry that the prometheus subpackage's implementation
// registers onto.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry enables metrics collection and creates the process-wide
// registry. Call once during daemon startup before constructing any
// SessionMetrics implementation.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}
