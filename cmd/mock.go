package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/zipdrop/internal/server"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// MockServe runs the mock API over HTTP until interrupted.
func (r *Runner) MockServe(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d", shared.ErrInvalidArgument, cfg.Port)
	}

	prefix := cmd.String("prefix")
	if !cmd.IsSet("prefix") {
		base, err := url.Parse(r.config.API.BaseURL)
		if err != nil {
			return fmt.Errorf("%w: api.base_url: %v", shared.ErrInvalidConfig, err)
		}
		prefix = base.Path
	}

	latency := r.config.Mock.SimulateLatency
	if cmd.IsSet("latency") {
		latency = cmd.Bool("latency")
	}

	logger := shared.WithLogger(r.logger, "component", "mock")
	api := server.NewMockAPI(server.MockOptions{
		TokenTTL:     r.config.Mock.TokenTTL.Duration,
		PublicDomain: r.config.API.PublicDomain,
		Now:          r.now,
		Logger:       logger,
	})
	handler := server.Mount(prefix, server.NewMockHandler(api, logger, latency))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("Mock API on http://%s%s (Ctrl+C to stop)\n", cfg.Addr(), prefix)
	return server.Serve(ctx, cfg.Addr(), handler, logger)
}
