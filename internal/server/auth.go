package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/sessions"

	"github.com/seqtools/degbrowser/config"
	"github.com/seqtools/degbrowser/internal/loader"
	"github.com/seqtools/degbrowser/internal/logging"
)

// =============================================================================
// Authentication
// =============================================================================

// Authenticator guards the dashboard and API with HTTP basic auth.
//
// Credentials resolve in order: config file, DEG_USERNAME / DEG_PASSWORD
// environment variables, documented defaults. When auth is enabled and no
// password is configured anywhere, a random token is generated at startup
// and logged so the operator can still get in.
//
// A successful basic-auth exchange sets a session cookie so browsers do not
// resend credentials on every asset request.
type Authenticator struct {
	enabled  bool
	username string
	password string
	store    *sessions.CookieStore
	limiter  *RateLimiter
}

// NewAuthenticator resolves credentials and builds the session store.
func NewAuthenticator(cfg loader.AuthConfig) *Authenticator {
	a := &Authenticator{
		enabled:  cfg.Enabled,
		username: cfg.Username,
		password: cfg.Password,
		limiter:  NewRateLimiter(config.DefaultAuthRateLimit, config.DefaultAuthRateWindow),
	}

	if a.username == "" {
		a.username = os.Getenv("DEG_USERNAME")
	}
	if a.username == "" {
		a.username = config.DefaultUsername
	}
	if a.password == "" {
		a.password = os.Getenv("DEG_PASSWORD")
	}
	if a.enabled && a.password == "" {
		a.password = randomToken(config.GeneratedPasswordBytes)
		log.Warn("no password configured, generated one for this run",
			"username", a.username, "password", a.password)
	}

	secret := cfg.SessionSecret
	if secret == "" {
		// Per-process secret: sessions do not survive a restart, which is
		// acceptable for a single-operator dashboard.
		secret = randomToken(32)
	}
	a.store = sessions.NewCookieStore([]byte(secret))
	a.store.Options = &sessions.Options{HttpOnly: true, Path: "/", MaxAge: 86400}

	return a
}

// Username returns the resolved username.
func (a *Authenticator) Username() string { return a.username }

// Enabled reports whether auth is enforced.
func (a *Authenticator) Enabled() bool { return a.enabled }

// Middleware enforces authentication on next. Disabled auth passes every
// request through unchanged.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	if !a.enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if a.limiter.IsBlocked(ip) {
			log.Warn("auth rate limited", "ip", ip)
			http.Error(w, "too many failed attempts, try again later", http.StatusTooManyRequests)
			return
		}

		if session, err := a.store.Get(r, config.DefaultSessionName); err == nil {
			if user, ok := session.Values["user"].(string); ok && user == a.username {
				next.ServeHTTP(w, r.WithContext(logging.ContextWithUser(r.Context(), user)))
				return
			}
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !a.check(user, pass) {
			if ok {
				a.limiter.RecordFailure(ip)
				log.Warn("auth failed", "ip", ip, "username", user,
					"failures", a.limiter.GetFailureCount(ip))
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="degbrowser"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		a.limiter.Reset(ip)

		session, _ := a.store.Get(r, config.DefaultSessionName)
		session.Values["user"] = user
		if err := session.Save(r, w); err != nil {
			log.Warn("session save failed", "error", err)
		}

		next.ServeHTTP(w, r.WithContext(logging.ContextWithUser(r.Context(), user)))
	})
}

// check compares credentials in constant time.
func (a *Authenticator) check(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.password)) == 1
	return userOK && passOK
}

// randomToken returns a URL-safe random token of n source bytes.
func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// clientIP extracts the client address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
