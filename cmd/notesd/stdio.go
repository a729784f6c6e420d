package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/fyrsmithlabs/notesd/internal/mcp/stdio"
	"github.com/fyrsmithlabs/notesd/internal/render"
	"github.com/fyrsmithlabs/notesd/internal/tenant"
)

// runStdio serves the MCP protocol on stdin/stdout and blocks until
// ctx is cancelled.
//
// Stdout belongs to the protocol stream in this mode, so logs go to
// stderr. There is exactly one client and therefore one tenant,
// resolved once at startup.
func runStdio(ctx context.Context, cfg *config.Config) error {
	logger, err := initLogger(cfg, zapcore.Lock(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	repo := buildRepository(cfg, logger, nil)

	resolver := tenant.NewResolver(cfg.Tenant.ID, logger)
	tenantID, generated := resolver.Resolve(ctx, "")
	logger.Info(ctx, "resolved stdio tenant",
		zap.String("tenant", tenantID),
		zap.Bool("generated", generated))

	var renderer *render.Renderer
	if cfg.Render.Enabled {
		renderer = render.New(cfg.Render.Width)
	}

	srv, err := stdio.NewServer(repo, renderer, tenantID, logger)
	if err != nil {
		return fmt.Errorf("failed to create stdio server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "notesd stdio mode started (tenant %s)\n", tenantID)
	return srv.Run(ctx)
}
