package session

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/logger"
)

const contextKey = "session"

// Accessor exposes the session of the current request. Lookups are cached on
// the gin context so the provider is asked at most once per request.
type Accessor struct {
	provider Provider
}

func NewAccessor(provider Provider) *Accessor {
	return &Accessor{provider: provider}
}

type cached struct {
	sess *Session
	err  error
}

// GetSession returns the current session, or nil when the request is
// anonymous. It has no side effects beyond the per-request cache.
func (a *Accessor) GetSession(c *gin.Context) (*Session, error) {
	if v, ok := c.Get(contextKey); ok {
		if hit, ok := v.(cached); ok {
			return hit.sess, hit.err
		}
	}

	sess, err := a.provider.Session(c.Request.Context(), c.Request)
	if err == nil && sess != nil && sess.Expired(time.Now()) {
		sess = nil
	}
	c.Set(contextKey, cached{sess: sess, err: err})
	return sess, err
}

// GetCurrentUser returns the session user or nil. Lookup failures are logged
// and reported as no user.
func (a *Accessor) GetCurrentUser(c *gin.Context) *UserSummary {
	sess, err := a.GetSession(c)
	if err != nil {
		logger.Debug("session lookup failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		return nil
	}
	if sess == nil {
		return nil
	}
	return sess.User
}
