package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a bearer token. The token ID is the session id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenProvider issues and verifies HS256 bearer tokens. With a store
// attached a token is only honoured while its session exists.
type TokenProvider struct {
	secret []byte
	ttl    time.Duration
	store  *RedisStore
}

func NewTokenProvider(secret string, ttl time.Duration, store *RedisStore) *TokenProvider {
	return &TokenProvider{secret: []byte(secret), ttl: ttl, store: store}
}

func (p *TokenProvider) Issue(sess *Session) (string, error) {
	if sess == nil || sess.User == nil {
		return "", errors.New("session without user")
	}

	now := time.Now()
	expires := now.Add(p.ttl)
	if !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(expires) {
		expires = sess.ExpiresAt
	}

	claims := Claims{
		Email: sess.User.Email,
		Name:  sess.User.Name,
		Role:  sess.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.User.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *TokenProvider) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Session reads an "Authorization: Bearer" header. A malformed or expired
// token yields ErrInvalidToken.
func (p *TokenProvider) Session(ctx context.Context, r *http.Request) (*Session, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrInvalidToken
	}

	claims, err := p.Parse(parts[1])
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		return p.store.Get(ctx, claims.ID)
	}

	sess := &Session{
		ID: claims.ID,
		User: &UserSummary{
			ID:    claims.Subject,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  claims.Role,
		},
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
