package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tubeswipe/internal/auth"
	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/formatter"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"github.com/urfave/cli/v3"
)

// Feed composes the feed for the CLI session and prints or exports it.
func (r *Runner) Feed(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	yt, err := r.client(ctx, env)
	if err != nil {
		return err
	}

	settings := env.prefs.Settings()
	opts := feed.Options{
		SessionID:     auth.CLISessionID,
		IncludeShorts: settings.IncludeShorts,
		PlaylistID:    cmd.String("playlist"),
		Refresh:       cmd.Bool("refresh"),
		Window:        time.Duration(settings.FeedWindowHours) * time.Hour,
	}
	if cmd.IsSet("shorts") {
		opts.IncludeShorts = cmd.Bool("shorts")
	}
	if cmd.IsSet("hours") {
		hours := cmd.Int("hours")
		if hours <= 0 {
			return fmt.Errorf("%w: --hours must be positive", shared.ErrInvalidArgument)
		}
		opts.Window = time.Duration(hours) * time.Hour
	}

	progress := make(chan feed.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	cards, err := env.composer.Compose(ctx, yt, opts, progress)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("failed to compose feed: %w", err)
	}

	format := cmd.String("format")
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(path, format, cards); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d videos to %s\n", len(cards), path)
	}

	data, err := formatter.Export(format, cards)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Mute adds a channel to the muted list and drops cached feeds.
func (r *Runner) Mute(ctx context.Context, cmd *cli.Command) error {
	channelID := cmd.StringArg("channel-id")
	if channelID == "" {
		return fmt.Errorf("%w: channel id", shared.ErrMissingArgument)
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	title := cmd.String("title")
	if title == "" {
		title = channelID
	}
	title, err = env.prefs.Mute(channelID, title)
	if err != nil {
		return err
	}
	env.composer.InvalidateAll()

	return r.writePlain("✓ Muted %s (%s)\n", title, channelID)
}

// Unmute removes a channel from the muted list.
func (r *Runner) Unmute(ctx context.Context, cmd *cli.Command) error {
	channelID := cmd.StringArg("channel-id")
	if channelID == "" {
		return fmt.Errorf("%w: channel id", shared.ErrMissingArgument)
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	if err := env.prefs.Unmute(channelID); err != nil {
		return err
	}
	env.composer.InvalidateAll()

	return r.writePlain("✓ Unmuted %s\n", channelID)
}

// Muted lists muted channels.
func (r *Runner) Muted(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	channels := env.prefs.MutedList()
	if cmd.Bool("json") {
		return r.writeJSON(channels, true)
	}

	if len(channels) == 0 {
		return r.writePlain("No muted channels\n")
	}

	r.writePlain("Muted %d channels:\n\n", len(channels))
	for _, c := range channels {
		r.writePlain("  %s  %s\n", c.ID, c.Name)
	}
	return nil
}

// Summary prints the summary of a video, generating and caching it on first request.
func (r *Runner) Summary(ctx context.Context, cmd *cli.Command) error {
	videoID := cmd.StringArg("video-id")
	if videoID == "" {
		return fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	yt, err := r.client(ctx, env)
	if err != nil {
		return err
	}

	summary, cached, err := env.summary.Summarize(ctx, videoID, yt)
	if err != nil {
		return err
	}

	r.logger.Debug("summary ready", "video", videoID, "cached", cached, "source", summary.Source(), "provider", summary.Provider())

	if cmd.Bool("html") {
		return r.writePlain("%s\n", summary.Text())
	}
	return r.writePlain("%s\n", formatter.SummaryText(summary.Text()))
}

// Playlists lists the user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	yt, err := r.client(ctx, env)
	if err != nil {
		return err
	}

	playlists, err := yt.Playlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Title)
		r.writePlain("   ID: %s  Videos: %d  Privacy: %s\n", p.ID, p.ItemCount, p.Privacy)
	}
	return nil
}
