package http

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nextlevelbuilder/relaycat/internal/config"
)

const jwtIssuer = "relaycat"

// Authenticator accepts either the static API token or a login JWT.
type Authenticator struct {
	token    string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthenticator builds an Authenticator from the HTTP settings.
func NewAuthenticator(cfg config.HTTPConfig) *Authenticator {
	return &Authenticator{
		token:    cfg.Token,
		password: cfg.Password,
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.JWTTTL(),
		now:      time.Now,
	}
}

// Enabled reports whether any credential is configured. With none, the API
// is open.
func (a *Authenticator) Enabled() bool {
	return a.token != "" || a.loginEnabled()
}

func (a *Authenticator) loginEnabled() bool {
	return a.password != "" && len(a.secret) > 0
}

// RegisterRoutes registers the login endpoint.
func (a *Authenticator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
}

// Middleware rejects requests without a valid bearer credential.
func (a *Authenticator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Enabled() && !a.Verify(extractBearerToken(r)) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// Verify reports whether tok is the static token or a valid login JWT.
func (a *Authenticator) Verify(tok string) bool {
	if tok == "" {
		return false
	}
	if a.token != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(a.token)) == 1 {
		return true
	}
	if len(a.secret) == 0 {
		return false
	}
	_, err := jwt.ParseWithClaims(tok, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	return err == nil
}

// Issue signs a login token.
func (a *Authenticator) Issue() (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    jwtIssuer,
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (a *Authenticator) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginEnabled() {
		writeError(w, http.StatusNotFound, "password login is not configured")
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if subtle.ConstantTimeCompare([]byte(body.Password), []byte(a.password)) != 1 {
		slog.Warn("auth.login failed", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	tok, exp, err := a.Issue()
	if err != nil {
		slog.Error("auth.login", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"token_type": "Bearer",
		"expires_at": exp.UTC(),
	})
}
