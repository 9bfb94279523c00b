package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	IdentityKey contextKey = "identity"

	accessTokenParam = "access_token"
)

var ErrMissingToken = errors.New("missing bearer token")

// Authenticate accepts HS256 bearer tokens issued by the identity provider
// and stores their subject as the request identity. Browsers cannot set
// headers on an EventSource, so the token may also arrive as the
// access_token query parameter.
func Authenticate(secret []byte, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := ParseIdentity(r, secret)
			if err != nil {
				log.Warn("Authentication failed",
					"request_id", RequestIDFrom(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("Invalid or missing bearer token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func ParseIdentity(r *http.Request, secret []byte) (string, error) {
	raw := bearerToken(r)
	if raw == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.Contains(subject, "/") {
		return "", errors.New("token subject is not a usable identity")
	}
	return subject, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get(accessTokenParam))
}

// IssueToken signs a token for subject. Used by tests and local tooling.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func IdentityFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(IdentityKey).(string)
	return id, ok && id != ""
}
