// Package session resolves the authenticated identity attached to a request.
package session

import (
	"context"
	"net/http"
	"time"
)

// UserSummary is the slice of the user record carried by a session.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type Session struct {
	ID        string       `json:"id"`
	User      *UserSummary `json:"user,omitempty"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider looks up the session of a request. It returns (nil, nil) when the
// request carries none.
type Provider interface {
	Session(ctx context.Context, r *http.Request) (*Session, error)
}

// Chain asks each provider in turn and returns the first session found.
type Chain []Provider

func (c Chain) Session(ctx context.Context, r *http.Request) (*Session, error) {
	for _, p := range c {
		s, err := p.Session(ctx, r)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
	}
	return nil, nil
}
