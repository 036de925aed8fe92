package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/rxverify/internal/adapters/mcp"
	"github.com/kirillkom/rxverify/internal/bootstrap"
	"github.com/kirillkom/rxverify/internal/config"
	"github.com/kirillkom/rxverify/internal/observability/logging"
)

const (
	serviceName = "rxverify-mcp"
	version     = "0.1.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol, so logs go to stderr.
	logger := logging.New(os.Stderr, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{
		Logger:              logger,
		SearchCache:         true,
		SearchCacheInMemory: true,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.Search, app.CrossCheck, logger)
	if err := server.ServeStdio(mcpadapter.NewServer(tools, version)); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
