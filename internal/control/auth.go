package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL bounds each minted token's lifetime. The daemon itself issues
// and stores no token; each client holding the shared secret mints its own
// with IssueToken (as cmd/syncd's status/force-full-sync commands do).
const tokenTTL = 24 * time.Hour

// IssueToken mints an HS256 bearer token for the local control API, in the
// shape of the teacher's backend tokens (internal/auth/jwt.go) minus the
// upstream-OIDC branch this deployment has no use for.
func IssueToken(secret string) (string, error) {
	claims := jwt.MapClaims{
		"iss":        "flashnote-syncd",
		"token_type": "backend",
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

var errInvalidToken = errors.New("control: invalid or expired token")

func validateToken(tokenString, secret string) error {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return errInvalidToken
	}
	return nil
}

type ctxKey string

const ctxKeyAuthenticated ctxKey = "authenticated"

// authMiddleware requires a valid Bearer token on every request. devMode
// additionally accepts a missing header, for local desktop-shell dev loops
// that don't send a token yet.
func authMiddleware(secret string, devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if devMode {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyAuthenticated, true)))
					return
				}
				writeError(w, r, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if err := validateToken(token, secret); err != nil {
				writeError(w, r, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyAuthenticated, true)))
		})
	}
}
