package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/desertthunder/tubeswipe/internal/auth"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

const msgSessionExpired = "Session expired, please login again"

// sessionHandler serves a request made with a valid session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, session *models.Session)

// authed resolves the cookie's session and rejects the request with 401 when there is none.
func (s *Server) authed(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.Tokens.Session(r.Context(), s.sessions.value(r, keySessionID))
		if err != nil {
			if errors.Is(err, shared.ErrNotAuthenticated) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Not authenticated")
				return
			}
			s.fail(w, r, err, http.StatusInternalServerError)
			return
		}
		next(w, r, session)
	})
}

// youtubeFor returns the YouTube client for session: the shared mock for mock sessions,
// an API client with a refreshing token source otherwise.
func (s *Server) youtubeFor(ctx context.Context, session *models.Session) (services.YouTube, error) {
	if session.Mock() {
		return s.Mock, nil
	}
	client, err := s.Tokens.Client(ctx, session.ID())
	if err != nil {
		return nil, err
	}
	return s.YouTube(ctx, client)
}

// expire deletes a session whose refresh token stopped working and answers 401.
func (s *Server) expire(w http.ResponseWriter, r *http.Request, session *models.Session) {
	if err := s.Tokens.Delete(r.Context(), session.ID()); err != nil {
		s.Logger.Error("failed to delete expired session", "session", session.ID(), "error", err)
	}
	if err := s.sessions.clear(w, r); err != nil {
		s.Logger.Error("failed to clear session cookie", "error", err)
	}
	s.Feed.Invalidate(session.ID())
	writeError(w, http.StatusUnauthorized, codeUnauthorized, msgSessionExpired)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, err := s.Tokens.Session(r.Context(), s.sessions.value(r, keySessionID))
	writeJSON(w, http.StatusOK, map[string]bool{"logged_in": err == nil, "mock": s.mock})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.mock || s.OAuth == nil {
		http.Redirect(w, r, "/auth/callback?mock=true", http.StatusFound)
		return
	}

	state := auth.NewState()
	if err := s.sessions.set(w, r, map[string]string{keyState: state}); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, auth.AuthCodeURL(s.OAuth, state), http.StatusFound)
}

// handleCallback finishes the OAuth flow. The mock shortcut is only honoured in mock mode.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if s.mock || s.OAuth == nil {
		id, err := s.Tokens.CreateMock(ctx)
		if err != nil {
			s.fail(w, r, err, http.StatusInternalServerError)
			return
		}
		s.login(w, r, id)
		return
	}

	state := s.sessions.value(r, keyState)
	if state == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "State missing")
		return
	}
	if q.Get("state") != state {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid state")
		return
	}

	code := q.Get("code")
	if code == "" {
		s.Logger.Warn("authorization denied", "error", q.Get("error"), "description", q.Get("error_description"))
		writeError(w, http.StatusBadRequest, codeBadRequest, "Authorization failed")
		return
	}

	token, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		s.Logger.Error("token exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, codeUpstream, "Token exchange failed")
		return
	}

	id, err := s.Tokens.Create(ctx, token)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	s.login(w, r, id)
}

// login binds id to the cookie, replacing any previous session, and redirects home.
func (s *Server) login(w http.ResponseWriter, r *http.Request, id string) {
	if previous := s.sessions.value(r, keySessionID); previous != "" && previous != id {
		if err := s.Tokens.Delete(r.Context(), previous); err != nil {
			s.Logger.Warn("failed to delete previous session", "session", previous, "error", err)
		}
	}

	if err := s.sessions.set(w, r, map[string]string{keySessionID: id, keyState: ""}); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	s.Logger.Info("logged in", "session", id, "mock", s.mock)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := s.sessions.value(r, keySessionID); id != "" {
		if err := s.Tokens.Delete(r.Context(), id); err != nil {
			s.Logger.Warn("failed to delete session", "session", id, "error", err)
		}
		s.Feed.Invalidate(id)
	}
	if err := s.sessions.clear(w, r); err != nil {
		s.Logger.Error("failed to clear session cookie", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
