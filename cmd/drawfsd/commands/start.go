package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drawfs/drawfs/internal/drawdevice"
	"github.com/drawfs/drawfs/internal/logger"
	"github.com/drawfs/drawfs/internal/protocol/draw/registry"
	"github.com/drawfs/drawfs/internal/protocol/draw/session"
	"github.com/drawfs/drawfs/pkg/config"
	"github.com/drawfs/drawfs/pkg/metrics"
	metricsprom "github.com/drawfs/drawfs/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the drawfsd daemon",
	Long: `Start the drawfsd daemon in the foreground.

Examples:
  # Start with the default config location
  drawfsd start

  # Start with a custom config file
  drawfsd start --config /etc/drawfs/config.yaml

  # Override the log level via environment variable
  DRAWFS_LOGGING_LEVEL=DEBUG drawfsd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("drawfsd starting", "version", Version, "socket", cfg.SocketPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := buildRegistry(cfg)
	sessionCfg := buildSessionConfig(cfg)

	sessionMetrics := metrics.Noop()
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		sessionMetrics = metricsprom.NewSessionMetrics()
		logger.Info("metrics enabled", "bind_address", cfg.Metrics.BindAddress)
	}

	dev := drawdevice.New(drawdevice.Config{
		SocketPath:      cfg.SocketPath,
		ReadBufferSize:  4096,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, reg, sessionCfg, sessionMetrics)

	var wg sync.WaitGroup

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.BindAddress)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsSrv.Start(ctx); err != nil {
				logger.Error("metrics server error", logger.Err(err))
			}
		}()
	}

	if cfg.Admin.Enabled {
		adminSrv := drawdevice.NewAdminServer(dev, cfg.Admin.BindAddress)
		logger.Info("admin endpoint enabled", "bind_address", cfg.Admin.BindAddress)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adminSrv.Start(ctx); err != nil {
				logger.Error("admin server error", logger.Err(err))
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- dev.Serve(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("drawfsd running, press Ctrl+C to stop")

	select {
	case <-sigCh:
		signal.Stop(sigCh)
		logger.Info("shutdown signal received, draining sessions")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("device shutdown error", logger.Err(err))
			wg.Wait()
			return err
		}
	case err := <-serverDone:
		signal.Stop(sigCh)
		if err != nil {
			wg.Wait()
			return fmt.Errorf("device facade error: %w", err)
		}
	}

	wg.Wait()
	logger.Info("drawfsd stopped")
	return nil
}

func buildRegistry(cfg *config.Config) *registry.Registry {
	displays := make([]registry.Display, len(cfg.Displays))
	for i, d := range cfg.Displays {
		displays[i] = registry.Display{
			ID:         d.ID,
			Width:      d.Width,
			Height:     d.Height,
			RefreshMHz: d.RefreshMHz,
		}
	}
	return registry.New(displays)
}

func buildSessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		MaxSurfaces:     cfg.Session.MaxSurfaces,
		MaxSurfaceBytes: cfg.Session.MaxSurfaceBytes.Uint64(),
		MaxOutqDepth:    cfg.Session.MaxOutqDepth,
		MaxOutqBytes:    int(cfg.Session.MaxOutqBytes.Uint64()),
		MaxInbufBytes:   int(cfg.Session.MaxInbufBytes.Uint64()),
	}
}
