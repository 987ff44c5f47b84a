// Package startup prepares the sandbox collector server
package startup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siteguard/widget-go/internal/application/container"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/presentation/http/middleware"
	"github.com/siteguard/widget-go/internal/presentation/http/server"
	"github.com/siteguard/widget-go/pkg/config"
)

const shutdownTimeout = 30 * time.Second

// Initialize performs the complete sandbox startup sequence and blocks until a
// shutdown signal arrives.
func Initialize() error {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Logging
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.LogStartupPhase("logging", time.Since(start), true, map[string]any{"directory": config.LogDirectory})

	// Step 2: Storage and services
	phaseStart := time.Now()
	appContainer, err := container.NewContainer(container.Options{
		Driver:  config.SandboxDBDriver,
		DSN:     config.SandboxDBDSN,
		Tenants: config.SandboxTenants,
	}, logger)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(phaseStart), false, map[string]any{"error": err.Error()})
		return err
	}
	defer appContainer.Close()
	logger.LogStartupPhase("container", time.Since(phaseStart), true, map[string]any{
		"driver":  config.SandboxDBDriver,
		"tenants": len(config.SandboxTenants),
	})

	// Step 3: Background workers
	go appContainer.LiveHub.Run(ctx)
	limiter := middleware.NewSessionLimiter(config.SandboxRatePerSecond, config.SandboxRateBurst)
	go limiter.Run(ctx)
	logger.Startup().Info("Background workers started", "ratePerSecond", config.SandboxRatePerSecond, "burst", config.SandboxRateBurst)

	// Step 4: HTTP server
	httpServer := server.New(config.Port, appContainer, limiter)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Sandbox startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
			return err
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Sandbox shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return nil
}

func newLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	cfg.JSONFormat = config.LogJSON
	if os.Getenv("GIN_MODE") != "release" {
		cfg.ChannelLevels[logging.ChannelCollector] = slog.LevelDebug
	}
	return logging.NewChanneledLogger(cfg)
}
