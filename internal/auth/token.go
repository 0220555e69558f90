package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenCookie = "access_token"

type ctxKey struct{}

// ExtractAccessToken reads the payer's token from the access_token cookie,
// falling back to an "Authorization: Token <t>" or "Bearer <t>" header.
// JWTs that already expired are treated as absent.
func ExtractAccessToken(r *http.Request) string {
	token := ""

	// 1️⃣ Cookie (preferred)
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		token = cookie.Value
	}

	// 2️⃣ Authorization header (fallback)
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		for _, scheme := range []string{"Token ", "Bearer "} {
			if strings.HasPrefix(authHeader, scheme) {
				token = strings.TrimSpace(strings.TrimPrefix(authHeader, scheme))
				break
			}
		}
	}

	if token == "" || expired(token, time.Now()) {
		return ""
	}
	return token
}

// expired reports whether token is a JWT whose exp is in the past. The
// signature is the backend's business; opaque tokens are never expired here.
func expired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(ctxKey{}).(string)
	return token
}

// ContextToken yields the token stored by the auth middleware.
type ContextToken struct{}

func (ContextToken) Token(ctx context.Context) string { return TokenFrom(ctx) }
