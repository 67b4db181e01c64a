package models

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

var _ Model = (*Session)(nil)

// Session binds a cookie session id to the OAuth token used for YouTube calls.
type Session struct {
	id        string
	mock      bool
	token     *oauth2.Token
	createdAt time.Time
	updatedAt time.Time
	lastSeen  time.Time
}

// NewSession creates a session holding token. Mock sessions carry no token.
func NewSession(token *oauth2.Token, mock bool) *Session {
	now := time.Now().UTC()
	return &Session{token: token, mock: mock, createdAt: now, updatedAt: now, lastSeen: now}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Mock() bool           { return s.mock }
func (s *Session) Token() *oauth2.Token { return s.token }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }
func (s *Session) LastSeen() time.Time  { return s.lastSeen }

func (s *Session) SetID(id string)          { s.id = id }
func (s *Session) SetToken(t *oauth2.Token) { s.token = t }
func (s *Session) SetCreatedAt(t time.Time) { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time) { s.updatedAt = t }
func (s *Session) SetLastSeen(t time.Time)  { s.lastSeen = t }

// Validate requires an access token on non-mock sessions.
func (s *Session) Validate() error {
	if s.mock {
		return nil
	}
	if s.token == nil || s.token.AccessToken == "" {
		return fmt.Errorf("session requires an access token")
	}
	return nil
}
