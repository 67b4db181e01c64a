// submodule cmd contains command definitions
package main

import (
	"strings"
	"time"

	"github.com/desertthunder/tubeswipe/internal/formatter"
	"github.com/urfave/cli/v3"
)

// serveCommand runs the web application
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the TubeSwipe web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "Serve canned data without Google credentials",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write config.toml from the example, create the database and run migrations",
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the YouTube login used by terminal commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Google using a local callback server",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: 2 * time.Minute,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a token is stored and still usable",
				Action: r.AuthStatus,
			},
		},
	}
}

// feedCommand prints the composed feed
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Print recent uploads from your subscriptions",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "shorts",
				Usage: "Include Shorts",
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Bypass the feed cache",
			},
			&cli.IntFlag{
				Name:  "hours",
				Usage: "Only show videos newer than this many hours (defaults to settings)",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Only check this playlist for saved status",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (" + strings.Join(formatter.Formats, ", ") + ")",
				Value:   formatter.FormatText,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the feed to a file instead of stdout",
			},
		},
		Action: r.Feed,
	}
}

func muteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mute",
		Usage: "Hide a channel from the feed",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "channel-id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "title",
				Usage: "Channel name to store alongside the id",
			},
		},
		Action: r.Mute,
	}
}

func unmuteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "unmute",
		Usage: "Show a muted channel again",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "channel-id"},
		},
		Action: r.Unmute,
	}
}

func mutedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "muted",
		Usage: "List muted channels",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Muted,
	}
}

// summaryCommand prints a video summary
func summaryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Summarize a video from its transcript or description",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "video-id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "html",
				Usage: "Print the HTML list as returned by the model",
			},
		},
		Action: r.Summary,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Playlists,
	}
}

// cacheCommand handles summary cache and session maintenance
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune locally stored data",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show how many summaries are cached",
				Action: r.CacheStats,
			},
			{
				Name:  "forget",
				Usage: "Drop the cached summary of a video so it is generated again",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "video-id"},
				},
				Action: r.CacheForget,
			},
			{
				Name:  "purge-sessions",
				Usage: "Delete web sessions not used for a while",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Minimum idle time",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: r.CachePurgeSessions,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive swiping.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Swipe through the feed in the terminal",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "shorts",
				Usage: "Include Shorts",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/tubeswipe-tui.log",
			},
		},
		Action: r.TUI,
	}
}
