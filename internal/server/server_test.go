package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tubeswipe/internal/auth"
	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/metrics"
	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/preferences"
	"github.com/desertthunder/tubeswipe/internal/repositories"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
	tu "github.com/desertthunder/tubeswipe/internal/testing"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

type staticTranscripts struct{}

func (staticTranscripts) Transcript(context.Context, string) (string, error) {
	return "a transcript about a song", nil
}

type countingProvider struct{ calls atomic.Int32 }

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) Complete(context.Context, string, string) (string, error) {
	p.calls.Add(1)
	return "```html\n<ul><li>A song.</li></ul>\n```", nil
}

type fixture struct {
	server   *Server
	http     *httptest.Server
	client   *http.Client
	provider *countingProvider
	tokens   *auth.TokenStore
}

type flaggedShorts struct {
	ids   map[string]struct{}
	calls atomic.Int32
}

func (s *flaggedShorts) Shorts(_ context.Context, videoIDs []string) map[string]struct{} {
	s.calls.Add(1)
	out := make(map[string]struct{})
	for _, id := range videoIDs {
		if _, ok := s.ids[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func newFixture(t *testing.T, mock bool, tokenURL string, opts ...func(*Deps)) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	db, err := shared.OpenDatabase(ctx, shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := shared.DefaultConfig()
	cfg.Server.SecretKey = "test-secret"
	cfg.Server.MockMode = mock
	cfg.Google.ClientID = "client"
	cfg.Google.ClientSecret = "secret"
	cfg.Google.RedirectURI = "http://localhost/auth/callback"

	oauthConfig := auth.NewOAuthConfig(cfg.Google)
	if tokenURL != "" {
		oauthConfig.Endpoint.TokenURL = tokenURL
		oauthConfig.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	tokens := auth.NewTokenStore(repositories.NewSessionRepository(db), oauthConfig, logger)
	prefs := preferences.NewStore(filepath.Join(t.TempDir(), "muted_channels.json"), preferences.DefaultSettings(cfg.Feed), logger)
	provider := &countingProvider{}
	summaries := services.NewSummaryService(repositories.NewSummaryRepository(db), staticTranscripts{}, []services.Provider{provider}, logger)

	deps := Deps{
		Config:    cfg,
		OAuth:     oauthConfig,
		Tokens:    tokens,
		Prefs:     prefs,
		Feed:      feed.NewComposer(prefs, nil, feed.Config{}, logger),
		Summaries: summaries,
		YouTube: func(ctx context.Context, client *http.Client) (services.YouTube, error) {
			return services.NewYouTubeClient(ctx, client, logger, option.WithEndpoint("http://127.0.0.1:1/"))
		},
		Metrics: metrics.New(nil),
		Logger:  logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Host != strings.TrimPrefix(ts.URL, "http://") {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &fixture{server: srv, http: ts, client: client, provider: provider, tokens: tokens}
}

func (f *fixture) do(t *testing.T, method, path string, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, data
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	resp, data := f.do(t, http.MethodGet, "/login", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login to land on / with 200, got %d: %s", resp.StatusCode, data)
	}
	var status map[string]bool
	if err := json.Unmarshal(data, &status); err != nil || !status["logged_in"] {
		t.Fatalf("expected logged_in after mock login, got %s", data)
	}
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", data, err)
	}
	return v
}

func TestUnauthenticated(t *testing.T) {
	f := newFixture(t, true, "")

	for _, path := range []string{"/api/feed", "/api/muted-channels", "/api/playlists", "/api/settings", "/api/summary/abc"} {
		t.Run(path, func(t *testing.T) {
			resp, data := f.do(t, http.MethodGet, path, "")
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
			body := decodeBody[errorBody](t, data)
			if body.Error.Code != codeUnauthorized {
				t.Errorf("expected unauthorized code, got %q", body.Error.Code)
			}
		})
	}

	t.Run("index", func(t *testing.T) {
		_, data := f.do(t, http.MethodGet, "/", "")
		status := decodeBody[map[string]bool](t, data)
		if status["logged_in"] || !status["mock"] {
			t.Errorf("unexpected status %v", status)
		}
	})

	t.Run("healthz", func(t *testing.T) {
		resp, data := f.do(t, http.MethodGet, "/healthz", "")
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `"ok"`) {
			t.Errorf("unexpected health response %d %s", resp.StatusCode, data)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodDelete, "/api/feed", "")
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

func TestMockSession(t *testing.T) {
	f := newFixture(t, true, "")
	f.login(t)

	t.Run("feed", func(t *testing.T) {
		resp, data := f.do(t, http.MethodGet, "/api/feed", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
		}
		body := decodeBody[feedResponse](t, data)
		if body.Total != 3 || len(body.Videos) != 3 || body.NextCursor != nil {
			t.Errorf("unexpected feed %+v", body)
		}
	})

	t.Run("feed paging", func(t *testing.T) {
		_, data := f.do(t, http.MethodGet, "/api/feed?limit=2", "")
		body := decodeBody[feedResponse](t, data)
		if len(body.Videos) != 2 || body.NextCursor == nil || *body.NextCursor != 2 {
			t.Fatalf("unexpected first page %+v", body)
		}

		_, data = f.do(t, http.MethodGet, "/api/feed?limit=2&cursor=2", "")
		body = decodeBody[feedResponse](t, data)
		if len(body.Videos) != 1 || body.NextCursor != nil {
			t.Errorf("unexpected last page %+v", body)
		}
	})

	t.Run("feed rejects bad params", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/api/feed?cursor=abc", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("swipe", func(t *testing.T) {
		_, data := f.do(t, http.MethodPost, "/api/swipe", `{"video_id":"jNQXAC9IVRw","action":"skip"}`)
		if got := decodeBody[swipeResponse](t, data); got.Status != "skipped" {
			t.Errorf("expected skipped, got %+v", got)
		}

		_, data = f.do(t, http.MethodPost, "/api/swipe", `{"video_id":"dQw4w9WgXcQ","action":"save"}`)
		saved := decodeBody[swipeResponse](t, data)
		if saved.Status != "saved" || saved.PlaylistID != services.MockPlaylistID || saved.ItemID == "" {
			t.Fatalf("unexpected save response %+v", saved)
		}

		_, data = f.do(t, http.MethodGet, "/api/feed", "")
		for _, card := range decodeBody[feedResponse](t, data).Videos {
			if card.ID == "dQw4w9WgXcQ" && !card.Saved {
				t.Error("expected saved video to be marked saved")
			}
		}

		_, data = f.do(t, http.MethodPost, "/api/undo", `{"item_id":"`+saved.ItemID+`"}`)
		if !strings.Contains(string(data), "undone") {
			t.Errorf("expected undone, got %s", data)
		}

		_, data = f.do(t, http.MethodPost, "/api/swipe", `{"video_id":"x","action":"maybe"}`)
		if got := decodeBody[swipeResponse](t, data); got.Status != "invalid_action" {
			t.Errorf("expected invalid_action, got %+v", got)
		}

		_, data = f.do(t, http.MethodPost, "/api/swipe", `{"video_id":"x","action":"save","playlist_id":"nope"}`)
		if got := decodeBody[swipeResponse](t, data); got.Status != "error" || got.Message != "Could not save video" {
			t.Errorf("expected save error, got %+v", got)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/swipe", `{`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("mute and unmute", func(t *testing.T) {
		_, data := f.do(t, http.MethodPost, "/api/mute", `{"channel_id":"UC4QZ_LsYcvcqPqGSqIZShGA","channel_title":"jawed"}`)
		if got := decodeBody[map[string]string](t, data); got["status"] != "muted" || got["channel"] != "jawed" {
			t.Fatalf("unexpected mute response %v", got)
		}

		_, data = f.do(t, http.MethodGet, "/api/feed", "")
		for _, card := range decodeBody[feedResponse](t, data).Videos {
			if card.ChannelID == "UC4QZ_LsYcvcqPqGSqIZShGA" {
				t.Error("muted channel still in feed")
			}
		}

		_, data = f.do(t, http.MethodGet, "/api/muted-channels", "")
		muted := decodeBody[[]models.MutedChannel](t, data)
		if len(muted) != 1 || muted[0].Name != "jawed" {
			t.Errorf("unexpected muted channels %v", muted)
		}

		_, data = f.do(t, http.MethodPost, "/api/unmute", `{"channel_id":"UC4QZ_LsYcvcqPqGSqIZShGA"}`)
		if got := decodeBody[map[string]string](t, data); got["status"] != "unmuted" {
			t.Errorf("unexpected unmute response %v", got)
		}

		resp, _ := f.do(t, http.MethodPost, "/api/mute", `{"channel_title":"nobody"}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 without channel id, got %d", resp.StatusCode)
		}
	})

	t.Run("mute without a title reports the stored name", func(t *testing.T) {
		_, data := f.do(t, http.MethodPost, "/api/mute", `{"channel_id":"UCuntitled"}`)
		if got := decodeBody[map[string]string](t, data); got["channel"] != preferences.UnknownChannel {
			t.Errorf("expected %q, got %v", preferences.UnknownChannel, got)
		}

		f.do(t, http.MethodPost, "/api/unmute", `{"channel_id":"UCuntitled"}`)
	})

	t.Run("playlists", func(t *testing.T) {
		resp, data := f.do(t, http.MethodPost, "/api/playlists", `{"title":"Later"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
		}
		created := decodeBody[models.Playlist](t, data)
		if created.Title != "Later" || created.Privacy != "private" || created.Description != services.DefaultPlaylistDescription {
			t.Errorf("unexpected playlist %+v", created)
		}

		_, data = f.do(t, http.MethodGet, "/api/playlists", "")
		if lists := decodeBody[[]models.Playlist](t, data); len(lists) != 2 {
			t.Errorf("expected 2 playlists, got %v", lists)
		}
	})

	t.Run("summary is cached", func(t *testing.T) {
		for i, wantCached := range []bool{false, true} {
			resp, data := f.do(t, http.MethodGet, "/api/summary/dQw4w9WgXcQ", "")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d: %s", i, resp.StatusCode, data)
			}
			got := decodeBody[map[string]any](t, data)
			if got["summary"] != "<ul><li>A song.</li></ul>" || got["cached"] != wantCached {
				t.Errorf("request %d: unexpected summary %v", i, got)
			}
		}
		if n := f.provider.calls.Load(); n != 1 {
			t.Errorf("expected one LLM call, got %d", n)
		}
	})

	t.Run("settings", func(t *testing.T) {
		_, data := f.do(t, http.MethodPut, "/api/settings", `{"include_shorts":true,"feed_window_hours":12}`)
		got := decodeBody[models.Settings](t, data)
		if !got.IncludeShorts || got.FeedWindowHours != 12 {
			t.Errorf("unexpected settings %+v", got)
		}

		resp, _ := f.do(t, http.MethodPut, "/api/settings", `{"feed_window_hours":0}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		_, data := f.do(t, http.MethodGet, "/metrics", "")
		if !strings.Contains(string(data), "tubeswipe_") {
			t.Error("expected tubeswipe metrics")
		}
	})

	t.Run("logout", func(t *testing.T) {
		_, data := f.do(t, http.MethodGet, "/logout", "")
		if status := decodeBody[map[string]bool](t, data); status["logged_in"] {
			t.Error("expected logged out")
		}
		resp, _ := f.do(t, http.MethodGet, "/api/feed", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
		}
	})
}

func TestOAuthCallback(t *testing.T) {
	t.Run("login redirects to consent", func(t *testing.T) {
		f := newFixture(t, false, "")

		resp, _ := f.do(t, http.MethodGet, "/login", "")
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected 302, got %d", resp.StatusCode)
		}
		loc, err := url.Parse(resp.Header.Get("Location"))
		if err != nil {
			t.Fatalf("bad location: %v", err)
		}
		if loc.Host != "accounts.google.com" || loc.Query().Get("state") == "" {
			t.Errorf("unexpected consent url %s", loc)
		}
		if loc.Query().Get("prompt") != "consent" || loc.Query().Get("access_type") != "offline" {
			t.Errorf("expected offline consent params, got %s", loc.RawQuery)
		}
	})

	t.Run("state missing", func(t *testing.T) {
		f := newFixture(t, false, "")

		resp, data := f.do(t, http.MethodGet, "/auth/callback?code=abc&state=xyz", "")
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(data), "State missing") {
			t.Errorf("expected 400 State missing, got %d %s", resp.StatusCode, data)
		}
	})

	t.Run("invalid state", func(t *testing.T) {
		f := newFixture(t, false, "")
		f.do(t, http.MethodGet, "/login", "")

		resp, data := f.do(t, http.MethodGet, "/auth/callback?code=abc&state=forged", "")
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(data), "Invalid state") {
			t.Errorf("expected 400 Invalid state, got %d %s", resp.StatusCode, data)
		}
	})

	t.Run("mock shortcut is ignored outside mock mode", func(t *testing.T) {
		f := newFixture(t, false, "")

		resp, _ := f.do(t, http.MethodGet, "/auth/callback?mock=true", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("code exchange creates a session", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"access_token":"fresh","refresh_token":"r","token_type":"Bearer","expires_in":3600}`)
		}))
		defer tokenSrv.Close()

		f := newFixture(t, false, tokenSrv.URL)
		resp, _ := f.do(t, http.MethodGet, "/login", "")
		state, _ := url.Parse(resp.Header.Get("Location"))

		resp, data := f.do(t, http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state.Query().Get("state")), "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected redirect to /, got %d %s", resp.StatusCode, data)
		}
		if status := decodeBody[map[string]bool](t, data); !status["logged_in"] {
			t.Errorf("expected logged in, got %s", data)
		}
	})
}

func TestExpiredSession(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"invalid_grant"}`)
	}))
	defer tokenSrv.Close()

	f := newFixture(t, false, tokenSrv.URL)
	ctx := context.Background()

	id, err := f.tokens.Create(ctx, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := f.server.sessions.set(rec, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{keySessionID: id}); err != nil {
		t.Fatalf("failed to sign cookie: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, f.http.URL+"/api/feed", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, data)
	}
	if body := decodeBody[errorBody](t, data); body.Error.Message != msgSessionExpired {
		t.Errorf("expected session expired message, got %q", body.Error.Message)
	}
	if _, err := f.tokens.Session(ctx, id); err == nil {
		t.Error("expected the expired session to be deleted")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		upstream int
		want     int
	}{
		{shared.ErrNotAuthenticated, http.StatusBadGateway, http.StatusUnauthorized},
		{shared.ErrRefreshFailed, http.StatusBadGateway, http.StatusUnauthorized},
		{shared.ErrInvalidInput, http.StatusBadGateway, http.StatusBadRequest},
		{shared.ErrVideoNotFound, http.StatusBadGateway, http.StatusNotFound},
		{shared.ErrNoContent, http.StatusBadGateway, http.StatusNotFound},
		{shared.ErrAPIRequest, http.StatusBadGateway, http.StatusBadGateway},
		{shared.ErrAPIRequest, http.StatusInternalServerError, http.StatusInternalServerError},
		{io.EOF, http.StatusBadGateway, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got, _ := statusFor(tt.err, tt.upstream); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

// sessionGet requests path with a signed cookie for session id.
func (f *fixture) sessionGet(t *testing.T, id, path string) (*http.Response, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := f.server.sessions.set(rec, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{keySessionID: id}); err != nil {
		t.Fatalf("failed to sign cookie: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, f.http.URL+path, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestFeedShortsDefault(t *testing.T) {
	yt := &tu.FakeYouTube{
		Subs: []services.Subscription{{ChannelID: "UCa", Title: "Alpha"}},
		Videos: []models.Video{
			tu.RecentVideo("long1", "UCa", 2*time.Hour),
			tu.RecentVideo("short1", "UCa", time.Hour),
		},
	}
	shorts := &flaggedShorts{ids: map[string]struct{}{"short1": {}}}

	f := newFixture(t, false, "", func(d *Deps) {
		d.Feed = feed.NewComposer(d.Prefs, shorts, feed.Config{}, d.Logger)
		d.YouTube = func(context.Context, *http.Client) (services.YouTube, error) { return yt, nil }
	})

	id, err := f.tokens.Create(context.Background(), &oauth2.Token{
		AccessToken:  "live",
		RefreshToken: "r",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	t.Run("fresh preferences keep shorts", func(t *testing.T) {
		resp, data := f.sessionGet(t, id, "/api/feed")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
		}
		got := decodeBody[feedResponse](t, data)
		if got.Total != 2 || got.Videos[0].ID != "short1" {
			t.Errorf("expected the short to stay in the feed, got %+v", got.Videos)
		}
		if n := shorts.calls.Load(); n != 0 {
			t.Errorf("expected no shorts lookups, got %d", n)
		}
	})

	t.Run("query parameter drops shorts", func(t *testing.T) {
		resp, data := f.sessionGet(t, id, "/api/feed?include_shorts=false")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
		}
		got := decodeBody[feedResponse](t, data)
		if got.Total != 1 || got.Videos[0].ID != "long1" {
			t.Errorf("expected only the long video, got %+v", got.Videos)
		}
	})
}
