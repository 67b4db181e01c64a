package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/repositories"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"golang.org/x/oauth2"
)

func setupStore(t *testing.T, tokenURL string) (*TokenStore, *repositories.SessionRepository) {
	t.Helper()

	db, err := shared.OpenDatabase(context.Background(), shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}

	repo := repositories.NewSessionRepository(db)
	return NewTokenStore(repo, config, shared.NewLogger(io.Discard)), repo
}

// bearerEcho replies with the Authorization header it received.
func bearerEcho() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Header.Get("Authorization"))
	}))
}

func TestAuthCodeURL(t *testing.T) {
	config := NewOAuthConfig(shared.GoogleConfig{
		ClientID:    "client",
		RedirectURI: "http://localhost:8000/auth/callback",
		Scopes:      []string{"https://www.googleapis.com/auth/youtube.readonly"},
	})

	raw := AuthCodeURL(config, "state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}

	if !strings.HasPrefix(raw, "https://accounts.google.com/") {
		t.Errorf("expected google consent url, got %s", raw)
	}

	q := u.Query()
	for key, want := range map[string]string{
		"state":                  "state-123",
		"access_type":            "offline",
		"prompt":                 "consent",
		"include_granted_scopes": "true",
		"redirect_uri":           "http://localhost:8000/auth/callback",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("%s: expected %q, got %q", key, want, got)
		}
	}
}

func TestTokenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown session is not authenticated", func(t *testing.T) {
		store, _ := setupStore(t, "http://127.0.0.1:0/token")

		if _, err := store.Token(ctx, "missing"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := store.Client(ctx, ""); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated for empty id, got %v", err)
		}
	})

	t.Run("mock sessions have no token", func(t *testing.T) {
		store, _ := setupStore(t, "http://127.0.0.1:0/token")

		id, err := store.CreateMock(ctx)
		if err != nil {
			t.Fatalf("CreateMock failed: %v", err)
		}

		session, err := store.Session(ctx, id)
		if err != nil {
			t.Fatalf("Session failed: %v", err)
		}
		if !session.Mock() {
			t.Error("expected mock session")
		}
		if _, err := store.Token(ctx, id); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("valid token is used as is", func(t *testing.T) {
		store, _ := setupStore(t, "http://127.0.0.1:0/token")
		api := bearerEcho()
		defer api.Close()

		id, err := store.Create(ctx, &oauth2.Token{AccessToken: "live", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		client, err := store.Client(ctx, id)
		if err != nil {
			t.Fatalf("Client failed: %v", err)
		}

		resp, err := client.Get(api.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if string(body) != "Bearer live" {
			t.Errorf("expected Bearer live, got %q", body)
		}
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
				t.Errorf("unexpected refresh request: %v", r.Form)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "fresh",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		}))
		defer tokenServer.Close()

		store, repo := setupStore(t, tokenServer.URL)
		api := bearerEcho()
		defer api.Close()

		id, err := store.Create(ctx, &oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh-1",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(-time.Hour),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		client, err := store.Client(ctx, id)
		if err != nil {
			t.Fatalf("Client failed: %v", err)
		}

		resp, err := client.Get(api.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if string(body) != "Bearer fresh" {
			t.Errorf("expected refreshed token to be sent, got %q", body)
		}

		session, err := repo.Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to reload session: %v", err)
		}
		if session.Token().AccessToken != "fresh" {
			t.Errorf("expected refreshed token to be persisted, got %s", session.Token().AccessToken)
		}
		if session.Token().RefreshToken != "refresh-1" {
			t.Errorf("expected refresh token to be kept, got %q", session.Token().RefreshToken)
		}
	})

	t.Run("rejected refresh reports ErrRefreshFailed", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
		}))
		defer tokenServer.Close()

		store, _ := setupStore(t, tokenServer.URL)
		api := bearerEcho()
		defer api.Close()

		id, err := store.Create(ctx, &oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "revoked",
			Expiry:       time.Now().Add(-time.Hour),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		client, err := store.Client(ctx, id)
		if err != nil {
			t.Fatalf("Client failed: %v", err)
		}

		_, err = client.Get(api.URL)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("expired token without refresh token", func(t *testing.T) {
		var refreshes int
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			refreshes++
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer tokenServer.Close()

		store, _ := setupStore(t, tokenServer.URL)
		api := bearerEcho()
		defer api.Close()

		id, err := store.Create(ctx, &oauth2.Token{
			AccessToken: "stale",
			Expiry:      time.Now().Add(-time.Hour),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		client, err := store.Client(ctx, id)
		if err != nil {
			t.Fatalf("Client failed: %v", err)
		}

		_, err = client.Get(api.URL)
		if !errors.Is(err, shared.ErrNoRefreshToken) || !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrNoRefreshToken and ErrRefreshFailed, got %v", err)
		}
		if refreshes != 0 {
			t.Errorf("expected no refresh attempt, got %d", refreshes)
		}
	})

	t.Run("Put replaces the fixed cli session", func(t *testing.T) {
		store, _ := setupStore(t, "http://127.0.0.1:0/token")

		for _, access := range []string{"one", "two"} {
			if err := store.Put(ctx, CLISessionID, &oauth2.Token{AccessToken: access}); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}

		token, err := store.Token(ctx, CLISessionID)
		if err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if token.AccessToken != "two" {
			t.Errorf("expected latest token, got %s", token.AccessToken)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store, _ := setupStore(t, "http://127.0.0.1:0/token")

		id, err := store.Create(ctx, &oauth2.Token{AccessToken: "x"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Session(ctx, id); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after delete, got %v", err)
		}
	})

	t.Run("lookup keeps an active session from being purged", func(t *testing.T) {
		store, repo := setupStore(t, "http://127.0.0.1:0/token")

		stale := time.Now().Add(-48 * time.Hour)
		session := models.NewSession(&oauth2.Token{AccessToken: "x"}, false)
		session.SetUpdatedAt(stale)
		session.SetLastSeen(stale)
		if err := repo.Create(ctx, session); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		got, err := store.Session(ctx, session.ID())
		if err != nil {
			t.Fatalf("Session failed: %v", err)
		}
		if time.Since(got.LastSeen()) > time.Minute {
			t.Errorf("expected last seen to move to now, got %v", got.LastSeen())
		}

		n, err := repo.PurgeBefore(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("PurgeBefore failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected no purged sessions, got %d", n)
		}
		if _, err := store.Session(ctx, session.ID()); err != nil {
			t.Errorf("session should survive the purge: %v", err)
		}
	})
}
