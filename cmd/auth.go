package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/tubeswipe/internal/auth"
	"github.com/desertthunder/tubeswipe/internal/server"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization-code flow for terminal use.
//
// Starts a local HTTP server on the redirect URI's host, opens the browser for consent and stores the
// exchanged token under the CLI session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.config.Mock() {
		return fmt.Errorf("%w: google.client_id and google.client_secret must be set", shared.ErrMissingCredentials)
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, env.oauth, cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := env.tokens.Put(ctx, auth.CLISessionID, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: tubeswipe feed\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, timeout time.Duration, openBrowser bool) (*oauth2.Token, error) {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q is not an absolute URL", shared.ErrInvalidConfig, config.RedirectURL)
	}

	state := auth.NewState()
	authURL := auth.AuthCodeURL(config, state)
	oauthHandler := server.NewOAuthHandler(config, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", redirect.Host)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	if openBrowser {
		r.writePlain("→ Opening browser for Google authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	} else {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// AuthLogout deletes the stored CLI token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	if err := env.tokens.Delete(ctx, auth.CLISessionID); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports whether a CLI token is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.config.Mock() {
		return r.writePlain("Mode: mock (no Google credentials configured)\n")
	}

	env, err := r.open(ctx)
	if err != nil {
		return err
	}

	token, err := env.tokens.Token(ctx, auth.CLISessionID)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("Authentication: ✗ Not logged in (run 'tubeswipe auth login')\n")
	}
	if err != nil {
		return err
	}

	r.writePlain("Authentication: ✓ Logged in\n")
	if !token.Expiry.IsZero() {
		state := "valid"
		if !token.Valid() {
			state = "expired"
		}
		r.writePlain("Access token: %s (expires %s)\n", state, token.Expiry.Local().Format(time.RFC1123))
	}
	if token.RefreshToken != "" {
		r.writePlain("Refresh token: present\n")
	} else {
		r.writePlain("Refresh token: missing; log in again when the access token expires\n")
	}
	return nil
}
