// Package session resolves the caller of a request and hands it to
// handlers explicitly through the gin context.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	contextKey = "session"

	// UserIDHeader is trusted only when no signing secret is configured
	UserIDHeader = "X-User-ID"
)

var ErrNoSession = errors.New("no session")

// Session identifies the user behind a request
type Session struct {
	UserID string
}

// Middleware authenticates each request. With a non-empty secret it expects
// "Authorization: Bearer <HS256 JWT>" whose subject is the user id. With an
// empty secret it reads the user id from the X-User-ID header.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			sess *Session
			err  error
		)
		if secret == "" {
			sess, err = fromHeader(c.GetHeader(UserIDHeader))
		} else {
			sess, err = fromBearer(c.GetHeader("Authorization"), []byte(secret))
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(contextKey, sess)
		c.Next()
	}
}

// FromContext returns the session stored by Middleware
func FromContext(c *gin.Context) (*Session, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, ErrNoSession
	}
	sess, ok := v.(*Session)
	if !ok || sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

// IssueToken signs a session token for userID. Used by tooling and tests;
// production tokens come from the identity provider.
func IssueToken(userID, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID})
	return token.SignedString([]byte(secret))
}

func fromHeader(userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("missing %s header", UserIDHeader)
	}
	return &Session{UserID: userID}, nil
}

func fromBearer(header string, secret []byte) (*Session, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errors.New("missing bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &Session{UserID: claims.Subject}, nil
}
