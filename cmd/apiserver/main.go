// Command apiserver runs the compliance engine HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efilo-ai/compliance-engine/internal/config"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	httpserver "github.com/efilo-ai/compliance-engine/internal/interfaces/http"
)

const defaultShutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment-only when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: logger init: %v\n", err)
		os.Exit(1)
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", logging.Err(err))
		os.Exit(1)
	}
	defer app.Close()

	server := httpserver.NewServer(cfg.Server, httpserver.NewRouter(app.Router), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", logging.Err(err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Error("shutdown failed", logging.Err(err))
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
