// Package auth provides optional bearer-token authentication. When no
// signing secret is configured every request is accepted unauthenticated;
// this matches single-user development deployments.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/tansive/stately/internal/common/httpx"
	"github.com/tansive/stately/internal/statesrv/config"
	"github.com/tansive/stately/internal/statesrv/stcommon"
)

// Middleware validates the Authorization header and records the token
// subject in the request context as the caller's principal.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := config.Config().AuthSecret
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			httpx.ErrUnAuthorized("missing bearer token").Send(w)
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		subject, err := validateToken(tokenStr, secret)
		if err != nil {
			log.Ctx(r.Context()).Info().Err(err).Msg("token validation failed")
			httpx.ErrUnAuthorized().Send(w)
			return
		}

		ctx := stcommon.SetSubjectInContext(r.Context(), subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validateToken(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

// IssueToken mints an HS256 token for the given subject. Used by the CLI's
// token command and by tests.
func IssueToken(subject, secret string, validity time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("no signing secret configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(validity).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
