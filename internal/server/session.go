package server

import (
	"net/http"

	"github.com/desertthunder/tubeswipe/internal/shared"
	"github.com/gorilla/sessions"
)

const (
	sessionCookie = "tubeswipe_session"
	keySessionID  = "sid"
	keyState      = "state"
)

// cookieSessions keeps the session id and the pending OAuth state in a signed cookie.
// Tokens never leave the server.
type cookieSessions struct {
	store *sessions.CookieStore
}

func newCookieSessions(cfg shared.ServerConfig) *cookieSessions {
	store := sessions.NewCookieStore([]byte(cfg.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return &cookieSessions{store: store}
}

// get returns the cookie session. An invalid or tampered cookie yields a fresh empty session.
func (c *cookieSessions) get(r *http.Request) *sessions.Session {
	session, err := c.store.Get(r, sessionCookie)
	if err != nil {
		session, _ = c.store.New(r, sessionCookie)
	}
	return session
}

func (c *cookieSessions) value(r *http.Request, key string) string {
	v, _ := c.get(r).Values[key].(string)
	return v
}

// set stores key=value in the cookie.
func (c *cookieSessions) set(w http.ResponseWriter, r *http.Request, values map[string]string) error {
	session := c.get(r)
	for k, v := range values {
		if v == "" {
			delete(session.Values, k)
			continue
		}
		session.Values[k] = v
	}
	return session.Save(r, w)
}

// clear expires the cookie.
func (c *cookieSessions) clear(w http.ResponseWriter, r *http.Request) error {
	session := c.get(r)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
