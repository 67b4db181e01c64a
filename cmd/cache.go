package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tubeswipe/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached summaries.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	n, err := env.summaries.Count(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("Cache")
	r.writePlain("Database: %s\n", r.config.Database.Path)
	r.writePlain("Summaries: %d\n", n)
	r.writePlain("Muted channels: %d\n", len(env.prefs.Muted()))
	return nil
}

// CacheForget removes the cached summary of a video.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	videoID := cmd.StringArg("video-id")
	if videoID == "" {
		return fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	if err := env.summaries.Delete(ctx, videoID); err != nil {
		return err
	}

	r.logger.Infof("forgot summary for %s", videoID)
	return r.writePlain("✓ Removed cached summary for %s\n", videoID)
}

// CachePurgeSessions deletes sessions idle for longer than --older-than.
func (r *Runner) CachePurgeSessions(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	n, err := env.sessions.PurgeBefore(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}

	return r.writePlain("✓ Purged %d sessions idle for more than %s\n", n, age)
}
