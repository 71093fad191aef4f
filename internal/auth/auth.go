// Package auth resolves the caller of a request from an HS256 bearer token.
// Issuing tokens belongs to the identity provider; Issue exists for local
// development and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"spendwise/internal/core"
)

const issuer = "spendwise"

type Verifier struct {
	secret []byte
	clock  core.Clock
}

// NewVerifier returns a verifier for secret. With an empty secret every
// token is rejected and callers are treated as unauthenticated.
func NewVerifier(secret string, clock core.Clock) *Verifier {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Verifier{secret: []byte(secret), clock: clock}
}

// Verify returns the token's subject or an error wrapping core.ErrUnauthenticated.
func (v *Verifier) Verify(tokenString string) (string, error) {
	if len(v.secret) == 0 {
		return "", fmt.Errorf("%w: token verification disabled", core.ErrUnauthenticated)
	}
	if tokenString == "" {
		return "", fmt.Errorf("%w: no token", core.ErrUnauthenticated)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrUnauthenticated, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", core.ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// Issue signs a token for userID valid for ttl.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("cannot issue tokens without a secret")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: user id", core.ErrMissingField)
	}
	now := v.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// UserFromRequest resolves the caller. Any failure yields "" and the reason.
func (v *Verifier) UserFromRequest(r *http.Request) (string, error) {
	return v.Verify(BearerToken(r))
}

type ctxKey struct{}

// WithUser stores the resolved user id in ctx. An empty id means anonymous.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFromContext returns the id stored by WithUser, or "".
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware resolves the caller of every request. Requests without a valid
// token continue anonymously; they are never rejected here.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := v.UserFromRequest(r)
		if err != nil {
			userID = ""
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}
