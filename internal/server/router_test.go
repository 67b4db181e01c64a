package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func tag(name string, order *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestBasicRouter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Pattern))
	})

	t.Run("Method patterns", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/items", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "GET /items" {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware order", func(t *testing.T) {
		var order []string
		r := NewBasicRouter()
		r.Use(tag("outer", &order), tag("inner", &order))
		api := r.Group("/api/", tag("group", &order))
		api.Handle(http.MethodGet, "/feed", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

		if rec.Body.String() != "GET /api/feed" {
			t.Errorf("expected group route, got %q", rec.Body.String())
		}
		if got := strings.Join(order, ","); got != "outer,inner,group" {
			t.Errorf("unexpected middleware order %s", got)
		}
	})

	t.Run("Handler routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(NewOAuthHandler(loopbackConfig(""), "s"))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/done?state=x", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected callback to be mounted, got %d", rec.Code)
		}
	})

	t.Run("NoStore", func(t *testing.T) {
		r := NewBasicRouter()
		r.Group("/api", NoStore).Handle(http.MethodGet, "/x", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
		if got := rec.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("expected no-store, got %q", got)
		}
	})
}
