// Package auth identifies the administrator's browser across requests via
// an HMAC-signed JWT cookie carrying a session id. There is no login flow;
// the first request gets a fresh session, later requests reuse it.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/libtrack/internal/logger"
)

// Auth issues and verifies the admin session cookie.
type Auth struct {
	cookieName string
	signingKey []byte
}

// Claims are the JWT claims stored in the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// ContextKey is a custom type for context values to avoid collisions.
type ContextKey string

// SessionIDKey is the context key holding the current session id.
const SessionIDKey ContextKey = "sessionID"

// New creates an Auth with the given cookie name and HMAC signing key.
func New(cookieName string, signingKey []byte) *Auth {
	return &Auth{
		cookieName: cookieName,
		signingKey: signingKey,
	}
}

// WithSession is an HTTP middleware that restores the session id from the
// cookie, or starts a new session when the cookie is absent or its
// signature does not verify. The id ends up in the request context.
func (a *Auth) WithSession(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		sessionID := a.sessionIDFromCookie(request)

		if sessionID == "" {
			sessionID = uuid.New().String()

			token, err := a.buildJWTString(&Claims{SessionID: sessionID})
			if err != nil {
				logger.Log.Debugln("Error signing the session cookie: ", zap.Error(err))
				response.WriteHeader(http.StatusInternalServerError)

				return
			}

			http.SetCookie(
				response,
				&http.Cookie{
					Name:     a.cookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
				},
			)
		}

		ctx := context.WithValue(request.Context(), SessionIDKey, sessionID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

func (a *Auth) sessionIDFromCookie(request *http.Request) string {
	cookie, err := request.Cookie(a.cookieName)
	if err != nil {
		return ""
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.SessionID
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	return token.SignedString(a.signingKey)
}
