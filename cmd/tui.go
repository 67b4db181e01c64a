package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tubeswipe/internal/auth"
	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"github.com/desertthunder/tubeswipe/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal swipe UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.ParseLogLevel(fileLogger, r.config.Log.Level)
	r.SetLogger(fileLogger)

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
		Window:        time.Duration(settings.FeedWindowHours) * time.Hour,
	}
	if cmd.IsSet("shorts") {
		opts.IncludeShorts = cmd.Bool("shorts")
	}

	model := ui.NewModel(ctx, ui.Deps{
		YouTube:   yt,
		Composer:  env.composer,
		Summaries: env.summary,
		Prefs:     env.prefs,
		Options:   opts,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return model.Err()
}
