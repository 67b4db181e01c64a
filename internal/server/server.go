// package server contains middleware & handlers for the TubeSwipe REST API
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/auth"
	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/metrics"
	"github.com/desertthunder/tubeswipe/internal/preferences"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"golang.org/x/oauth2"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that register their own routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// YouTubeFactory builds a YouTube client sending requests with an authorised HTTP client.
type YouTubeFactory func(ctx context.Context, client *http.Client) (services.YouTube, error)

// Deps are the collaborators the API is built from.
type Deps struct {
	Config    *shared.Config
	OAuth     *oauth2.Config
	Tokens    *auth.TokenStore
	Prefs     *preferences.Store
	Feed      *feed.Composer
	Summaries *services.SummaryService
	YouTube   YouTubeFactory
	Mock      services.YouTube // served to mock sessions; defaults to a fresh MockYouTube
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// Server is the TubeSwipe HTTP API.
type Server struct {
	Deps
	mock     bool
	sessions *cookieSessions
	router   *BasicRouter
}

// New wires the API routes.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("%w: server requires a config", shared.ErrMissingConfig)
	}
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if deps.Mock == nil {
		deps.Mock = services.NewMockYouTube()
	}
	if deps.YouTube == nil {
		logger := deps.Logger
		deps.YouTube = func(ctx context.Context, client *http.Client) (services.YouTube, error) {
			return services.NewYouTubeClient(ctx, client, logger)
		}
	}

	s := &Server{
		Deps:     deps,
		mock:     deps.Config.Mock(),
		sessions: newCookieSessions(deps.Config.Server),
		router:   NewBasicRouter(),
	}
	s.Logger = shared.WithLogger(deps.Logger, "component", "server")
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(Recover(s.Logger), Logging(s.Logger), Instrument(s.Metrics))

	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(s.handleIndex))
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(s.handleHealth))
	r.Handle(http.MethodGet, "/metrics", s.Metrics.Handler())

	r.Handle(http.MethodGet, "/login", http.HandlerFunc(s.handleLogin))
	r.Handle(http.MethodGet, "/auth/callback", http.HandlerFunc(s.handleCallback))
	r.Handle(http.MethodGet, "/logout", http.HandlerFunc(s.handleLogout))

	api := r.Group("/api", NoStore)
	api.Handle(http.MethodGet, "/feed", s.authed(s.handleFeed))
	api.Handle(http.MethodPost, "/swipe", s.authed(s.handleSwipe))
	api.Handle(http.MethodPost, "/undo", s.authed(s.handleUndo))
	api.Handle(http.MethodGet, "/summary/{videoID}", s.authed(s.handleSummary))
	api.Handle(http.MethodPost, "/mute", s.authed(s.handleMute))
	api.Handle(http.MethodPost, "/unmute", s.authed(s.handleUnmute))
	api.Handle(http.MethodGet, "/muted-channels", s.authed(s.handleMutedChannels))
	api.Handle(http.MethodGet, "/playlists", s.authed(s.handlePlaylists))
	api.Handle(http.MethodPost, "/playlists", s.authed(s.handleCreatePlaylist))
	api.Handle(http.MethodGet, "/settings", s.authed(s.handleSettings))
	api.Handle(http.MethodPut, "/settings", s.authed(s.handleUpdateSettings))
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr, "mock", s.mock)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
