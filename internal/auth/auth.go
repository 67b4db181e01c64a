// Package auth stores OAuth tokens per session and hands out HTTP clients that refresh them.
//
// Tokens live in the sessions table; the browser only ever holds the session id.
// A [TokenStore] client refreshes expired access tokens with the stored refresh token and writes
// the new token back, so later requests in the same session reuse it.
// When a refresh is rejected the client's requests fail with [shared.ErrRefreshFailed].
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// CLISessionID is the fixed session id used by terminal commands.
const CLISessionID = "cli"

// touchInterval bounds how often a lookup rewrites a session's last_seen.
const touchInterval = time.Minute

// Sessions is the persistence the [TokenStore] needs; implemented by repositories.SessionRepository.
type Sessions interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	UpdateToken(ctx context.Context, id string, token *oauth2.Token) error
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, at time.Time) error
}

// NewOAuthConfig builds the Google OAuth client configuration.
func NewOAuthConfig(cfg shared.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint:     endpoints.Google,
	}
}

// AuthCodeURL returns the consent page URL, asking for a refresh token on every login.
func AuthCodeURL(config *oauth2.Config, state string) string {
	return config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// NewState returns a random OAuth state token.
func NewState() string {
	return shared.GenerateID()
}

// TokenStore persists OAuth tokens per session.
type TokenStore struct {
	sessions Sessions
	config   *oauth2.Config
	logger   *log.Logger
}

// NewTokenStore creates a [TokenStore] refreshing tokens with config.
func NewTokenStore(sessions Sessions, config *oauth2.Config, logger *log.Logger) *TokenStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TokenStore{sessions: sessions, config: config, logger: shared.WithLogger(logger, "component", "auth")}
}

// Create stores token in a new session and returns its id.
func (s *TokenStore) Create(ctx context.Context, token *oauth2.Token) (string, error) {
	session := models.NewSession(token, false)
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return session.ID(), nil
}

// CreateMock creates a tokenless session used when no Google credentials are configured.
func (s *TokenStore) CreateMock(ctx context.Context) (string, error) {
	session := models.NewSession(nil, true)
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create mock session: %w", err)
	}
	return session.ID(), nil
}

// Put stores token under a caller-chosen session id, replacing any previous token.
func (s *TokenStore) Put(ctx context.Context, id string, token *oauth2.Token) error {
	session := models.NewSession(token, false)
	session.SetID(id)
	if err := s.sessions.Create(ctx, session); err != nil {
		return fmt.Errorf("failed to store session %s: %w", id, err)
	}
	return nil
}

// Session returns the session row, or [shared.ErrNotAuthenticated] when it does not exist.
//
// Each lookup marks the session as seen so idle purges spare sessions in use.
func (s *TokenStore) Session(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, shared.ErrNotAuthenticated
	}
	session, err := s.sessions.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown session", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, err
	}

	if now := time.Now(); now.Sub(session.LastSeen()) >= touchInterval {
		if err := s.sessions.Touch(ctx, id, now); err != nil {
			s.logger.Warn("failed to record session activity", "session", id, "error", err)
		} else {
			session.SetLastSeen(now)
		}
	}
	return session, nil
}

// Token returns the stored token for the session.
func (s *TokenStore) Token(ctx context.Context, id string) (*oauth2.Token, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Mock() || session.Token() == nil {
		return nil, fmt.Errorf("%w: session has no token", shared.ErrNotAuthenticated)
	}
	return session.Token(), nil
}

// Client returns an HTTP client authorised with the session's token.
//
// Expired tokens are refreshed on first use and persisted; a rejected refresh surfaces as
// [shared.ErrRefreshFailed] from the client's requests, and an expired token stored without a refresh
// token additionally as [shared.ErrNoRefreshToken].
func (s *TokenStore) Client(ctx context.Context, id string) (*http.Client, error) {
	token, err := s.Token(ctx, id)
	if err != nil {
		return nil, err
	}

	src := &persistingSource{
		ctx:      ctx,
		id:       id,
		sessions: s.sessions,
		base:     s.config.TokenSource(ctx, token),
		last:     token,
		logger:   s.logger,
	}
	return oauth2.NewClient(ctx, src), nil
}

// Delete removes the session and its tokens.
func (s *TokenStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.sessions.Delete(ctx, id)
}

// persistingSource writes tokens back to the session row whenever the wrapped source refreshes.
type persistingSource struct {
	ctx      context.Context
	id       string
	sessions Sessions
	base     oauth2.TokenSource
	logger   *log.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last != nil && !last.Valid() && last.RefreshToken == "" {
		p.logger.Warn("token expired without a refresh token", "session", p.id)
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	token, err := p.base.Token()
	if err != nil {
		p.logger.Warn("token refresh failed", "session", p.id, "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	p.mu.Lock()
	changed := p.last == nil || p.last.AccessToken != token.AccessToken
	p.last = token
	p.mu.Unlock()

	if changed {
		if err := p.sessions.UpdateToken(p.ctx, p.id, token); err != nil {
			p.logger.Error("failed to persist refreshed token", "session", p.id, "error", err)
		} else {
			p.logger.Debug("token refreshed", "session", p.id)
		}
	}

	return token, nil
}
