// Package auth is the static username/password gate in front of the API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
)

// CookieName carries the session token issued at login
const CookieName = "cardscanner_auth"

const cookieMaxAge = 30 * 24 * time.Hour

// ErrBadCredentials is returned for a wrong username or password
var ErrBadCredentials = failures.Wrap(failures.ErrInvalidCredential, "login", "invalid username or password", nil)

// Gate checks the configured credential pair and tracks issued tokens
type Gate struct {
	username string
	password string

	mu     sync.RWMutex
	tokens map[string]time.Time
}

func New(cfg config.AuthConfig) *Gate {
	return &Gate{
		username: cfg.Username,
		password: cfg.Password,
		tokens:   make(map[string]time.Time),
	}
}

// Login returns a new token when username and password match
func (g *Gate) Login(username, password string) (string, error) {
	if err := config.Require("ADMIN_USERNAME", g.username); err != nil {
		return "", err
	}
	if err := config.Require("ADMIN_PASSWORD", g.password); err != nil {
		return "", err
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	if !userOK || !passOK {
		return "", ErrBadCredentials
	}

	token := uuid.NewString()
	g.mu.Lock()
	g.tokens[token] = time.Now().Add(cookieMaxAge)
	g.mu.Unlock()
	return token, nil
}

// Valid reports whether token was issued and has not expired
func (g *Gate) Valid(token string) bool {
	g.mu.RLock()
	expires, ok := g.tokens[token]
	g.mu.RUnlock()
	return ok && time.Now().Before(expires)
}

// Logout forgets every issued token
func (g *Gate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = make(map[string]time.Time)
}

// SetCookie writes the durable auth cookie for token
func SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the auth cookie
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Require rejects requests without a valid auth cookie
func (g *Gate) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || !g.Valid(cookie.Value) {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
