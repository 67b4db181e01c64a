package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/tubeswipe/internal/server"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/urfave/cli/v3"
)

// Serve runs the web server until the process receives an interrupt.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("mock") {
		r.config.Server.MockMode = true
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	logger := r.logger
	opts := r.apiOptions()
	srv, err := server.New(server.Deps{
		Config:    r.config,
		OAuth:     env.oauth,
		Tokens:    env.tokens,
		Prefs:     env.prefs,
		Feed:      env.composer,
		Summaries: env.summary,
		YouTube: func(ctx context.Context, client *http.Client) (services.YouTube, error) {
			return services.NewYouTubeClient(ctx, client, logger, opts...)
		},
		Mock:    r.youtube,
		Metrics: env.metrics,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Addr()
	}
	if r.config.Mock() {
		r.logger.Warn("running in mock mode; no Google account is used")
	}

	return srv.ListenAndServe(ctx, addr)
}
