package config

import "time"

// DefaultConfig returns the configuration used when no config file is
// present: a single 1920x1080@60 display and the session limits named as
// examples throughout the protocol's resource bounds.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		SocketPath:      "/run/drawfs/drawfs.sock",
		ShutdownTimeout: 10 * time.Second,
		Displays: []DisplayConfig{
			{ID: 1, Width: 1920, Height: 1080, RefreshMHz: 60000},
		},
		Session: SessionConfig{
			MaxSurfaces:     256,
			MaxSurfaceBytes: 64 * 1024 * 1024,
			MaxOutqDepth:    256,
			MaxOutqBytes:    256 * 1024,
			MaxInbufBytes:   64 * 1024,
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "127.0.0.1:9090",
		},
		Admin: AdminConfig{
			Enabled:     true,
			BindAddress: "127.0.0.1:9091",
		},
	}
}
