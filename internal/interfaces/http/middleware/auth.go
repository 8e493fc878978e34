// Package middleware holds the HTTP middleware of the API server.
package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	stdliberrors "errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
)

type contextKey int

const userContextKey contextKey = iota

// AuthConfig holds the credentials accepted by the auth middleware.
type AuthConfig struct {
	Username string
	Password string
	// TokenSecret enables HS256 bearer tokens next to basic auth. The
	// token subject becomes the request user.
	TokenSecret string
	// Realm is sent in the WWW-Authenticate challenge.
	Realm string
	// SkipPaths bypass authentication entirely.
	SkipPaths []string
}

// AuthMiddleware enforces HTTP basic authentication with a single account
// and, when a secret is configured, signed bearer tokens.
type AuthMiddleware struct {
	basic  bool
	user   [sha256.Size]byte
	pass   [sha256.Size]byte
	secret []byte
	parser *jwt.Parser
	realm  string
	skip   map[string]bool
	logger logging.Logger
}

// NewAuthMiddleware creates an AuthMiddleware.  It returns nil when neither
// a username nor a token secret is configured, which the router treats as
// authentication off.
func NewAuthMiddleware(cfg AuthConfig, logger logging.Logger) *AuthMiddleware {
	if cfg.Username == "" && cfg.TokenSecret == "" {
		return nil
	}
	if cfg.Realm == "" {
		cfg.Realm = "sdb"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	m := &AuthMiddleware{
		basic:  cfg.Username != "",
		user:   sha256.Sum256([]byte(cfg.Username)),
		pass:   sha256.Sum256([]byte(cfg.Password)),
		realm:  cfg.Realm,
		skip:   skip,
		logger: logger,
	}
	if cfg.TokenSecret != "" {
		m.secret = []byte(cfg.TokenSecret)
		m.parser = jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
	}
	return m
}

// Handler rejects requests without valid credentials with 401.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		user, ok := m.authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", m.challenge())
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (string, bool) {
	if raw, ok := bearerToken(r); ok && m.parser != nil {
		sub, err := m.verifyToken(raw)
		if err != nil {
			m.logger.Warn("rejected token",
				logging.Err(err),
				logging.String("path", r.URL.Path),
				logging.String("remote_addr", r.RemoteAddr))
			return "", false
		}
		return sub, true
	}
	if !m.basic {
		return "", false
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return "", false
	}
	if !m.valid(user, pass) {
		m.logger.Warn("rejected credentials",
			logging.String("user", user),
			logging.String("path", r.URL.Path),
			logging.String("remote_addr", r.RemoteAddr))
		return "", false
	}
	return user, true
}

var errMissingSubject = stdliberrors.New("token has no subject")

// verifyToken checks signature and expiry and returns the subject.
func (m *AuthMiddleware) verifyToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := m.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

func (m *AuthMiddleware) challenge() string {
	if m.basic {
		return `Basic realm="` + m.realm + `", charset="UTF-8"`
	}
	return `Bearer realm="` + m.realm + `"`
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[7:]), true
}

// valid compares hashes so that the comparison time does not depend on the
// length of the configured secrets.
func (m *AuthMiddleware) valid(user, pass string) bool {
	u := sha256.Sum256([]byte(user))
	p := sha256.Sum256([]byte(pass))
	userOK := subtle.ConstantTimeCompare(u[:], m.user[:]) == 1
	passOK := subtle.ConstantTimeCompare(p[:], m.pass[:]) == 1
	return userOK && passOK
}

// ContextGetUser returns the authenticated user name, or "".
func ContextGetUser(ctx context.Context) string {
	if v, ok := ctx.Value(userContextKey).(string); ok {
		return v
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"COMMON_003","message":"unauthorized"}`))
}

//Personal.AI order the ending
