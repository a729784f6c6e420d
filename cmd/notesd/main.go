// Notesd is a multi-tenant note-keeping MCP server.
//
// It serves the note tools over two transports: streamable HTTP with
// per-session tenant tracking (the default), and stdio for direct
// client integration (-stdio). Notes persist to Azure Table Storage
// with an in-memory fallback when the durable backend is unavailable.
//
// Usage:
//
//	# Start the HTTP server with defaults
//	notesd
//
//	# Custom config file
//	notesd -config /etc/notesd/config.yaml
//
//	# Stdio mode for a single client
//	notesd -stdio
//
//	# Configure via environment
//	NOTESD_SERVER_PORT=8080 NOTESD_STORAGE_ACCOUNT=myacct notesd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/mcp"
	"github.com/fyrsmithlabs/notesd/internal/notes"
	"github.com/fyrsmithlabs/notesd/internal/render"
	"github.com/fyrsmithlabs/notesd/internal/tenant"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	stdioMode := flag.Bool("stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  notesd            Start the notesd server\n")
			fmt.Fprintf(os.Stderr, "  notesd -stdio     Serve MCP over stdin/stdout\n")
			fmt.Fprintf(os.Stderr, "  notesd version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if *stdioMode {
		err = runStdio(ctx, cfg)
	} else {
		err = run(ctx, cfg)
	}
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("notesd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the HTTP server and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	logger, err := initLogger(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting notesd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	registry := prometheus.NewRegistry()

	repo := buildRepository(cfg, logger, notes.NewMetrics(registry))
	resolver := tenant.NewResolver(cfg.Tenant.ID, logger)

	var renderer *render.Renderer
	if cfg.Render.Enabled {
		renderer = render.New(cfg.Render.Width)
	}

	srv, err := mcp.NewServer(cfg, repo, renderer, resolver, logger, mcp.NewMetrics(registry), registry)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}

// buildRepository wires the durable Azure Table backend with the
// in-memory fallback. With no storage account configured the durable
// path fails on every call and all traffic lands in memory.
func buildRepository(cfg *config.Config, logger *logging.Logger, metrics *notes.Metrics) *notes.Repository {
	durable := notes.NewTableStore(cfg.Storage, logger)
	transient := notes.NewMemoryStore()
	return notes.NewRepository(durable, transient, logger, metrics)
}

// initLogger builds the process logger from config. out overrides the
// destination; nil means stdout.
func initLogger(cfg *config.Config, out zapcore.WriteSyncer) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logCfg.Output = out
	return logging.NewLogger(logCfg)
}
