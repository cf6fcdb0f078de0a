// Package auth decides whether a request may proceed based on its session.
//
// The decision is made once, by Decide. Page handlers use the raising
// adapters (RequireAuth, RequireAdmin) and let the error reach the error page
// middleware; API handlers use the status adapters (AuthenticateAPIRequest,
// RequireAdminAPI) and write the returned status themselves.
package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/session"
)

type Level int

const (
	Authenticated Level = iota + 1
	Admin
)

// Decision is either Allowed with the session, or Denied with a reason and
// the HTTP status code that goes with it.
type Decision struct {
	Allowed bool
	Session *session.Session
	Reason  error
	Code    int
}

func allow(s *session.Session) Decision {
	return Decision{Allowed: true, Session: s, Code: http.StatusOK}
}

func deny(reason error, code int) Decision {
	return Decision{Reason: reason, Code: code}
}

// Decide is the single authorization rule. A missing session or a session
// without a user is Unauthorized (401), which takes precedence over the role
// check; a non-admin user asking for Admin is AdminRequired (403).
func Decide(s *session.Session, need Level) Decision {
	if s == nil || s.User == nil {
		return deny(apperr.ErrUnauthorized, http.StatusUnauthorized)
	}
	if need == Admin && s.User.Role != models.RoleAdmin {
		return deny(apperr.ErrAdminRequired, http.StatusForbidden)
	}
	return allow(s)
}

// SessionSource is the part of session.Accessor the gate needs.
type SessionSource interface {
	GetSession(c *gin.Context) (*session.Session, error)
}

type Gate struct {
	sessions SessionSource
}

func NewGate(sessions SessionSource) *Gate {
	return &Gate{sessions: sessions}
}

func (g *Gate) decide(c *gin.Context, need Level) Decision {
	sess, err := g.sessions.GetSession(c)
	if err != nil {
		logger.Warn("session lookup failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		sess = nil
	}
	return Decide(sess, need)
}

// RequireAuth returns the session or apperr.ErrUnauthorized.
func (g *Gate) RequireAuth(c *gin.Context) (*session.Session, error) {
	d := g.decide(c, Authenticated)
	if !d.Allowed {
		return nil, d.Reason
	}
	return d.Session, nil
}

// RequireAdmin returns the session of an admin, apperr.ErrUnauthorized when
// there is no session, or apperr.ErrAdminRequired otherwise.
func (g *Gate) RequireAdmin(c *gin.Context) (*session.Session, error) {
	d := g.decide(c, Admin)
	if !d.Allowed {
		return nil, d.Reason
	}
	return d.Session, nil
}

// APIResult is the status-object form of a decision: either User with
// Status 200, or Error with Status 401/403.
type APIResult struct {
	User   *session.UserSummary `json:"user,omitempty"`
	Error  string               `json:"error,omitempty"`
	Status int                  `json:"status"`
}

func (r APIResult) OK() bool {
	return r.Status == http.StatusOK
}

func toAPIResult(d Decision) APIResult {
	if !d.Allowed {
		msg := "Unauthorized"
		if errors.Is(d.Reason, apperr.ErrAdminRequired) {
			msg = "Admin access required"
		}
		return APIResult{Error: msg, Status: d.Code}
	}
	return APIResult{User: d.Session.User, Status: http.StatusOK}
}

func (g *Gate) AuthenticateAPIRequest(c *gin.Context) APIResult {
	return toAPIResult(g.decide(c, Authenticated))
}

func (g *Gate) RequireAdminAPI(c *gin.Context) APIResult {
	return toAPIResult(g.decide(c, Admin))
}
