package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/session"
)

const (
	minPasswordLength = 8
	// bcrypt reads at most 72 bytes of a password.
	maxPasswordBytes = 72
)

type UserAccounts interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionStore starts and ends cookie sessions.
type SessionStore interface {
	Create(ctx context.Context, user session.UserSummary) (*session.Session, error)
	Delete(ctx context.Context, id string) error
	CookieName() string
	TTL() time.Duration
}

type TokenIssuer interface {
	Issue(sess *session.Session) (string, error)
}

type CurrentSession interface {
	GetSession(c *gin.Context) (*session.Session, error)
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthOptions controls the session cookie.
type AuthOptions struct {
	SecureCookie bool
}

func summaryOf(u *models.User) session.UserSummary {
	return session.UserSummary{
		ID:    u.ID.Hex(),
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

// Register creates a customer account. The role is always customer; only an
// admin can promote a user.
func Register(users UserAccounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/register"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		if len(strings.TrimSpace(req.Password)) < minPasswordLength {
			respondAppError(c, route, "user", apperr.Invalid("password", "must be at least %d characters", minPasswordLength))
			return
		}
		if len(req.Password) > maxPasswordBytes {
			respondAppError(c, route, "user", apperr.Invalid("password", "must be at most %d bytes", maxPasswordBytes))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondAppError(c, route, "user", err)
			return
		}

		user := &models.User{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: string(hash),
			Role:         models.RoleCustomer,
		}
		if err := users.Create(c.Request.Context(), user); err != nil {
			respondAppError(c, route, "user", err)
			return
		}

		logger.Info("user registered", zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusCreated, gin.H{"user": summaryOf(user)})
	}
}

// Login checks the credentials, starts a session and returns it both as a
// cookie and as a bearer token.
func Login(users UserAccounts, sessions SessionStore, tokens TokenIssuer, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx := c.Request.Context()
		user, err := users.FindByEmail(ctx, req.Email)
		if errors.Is(err, apperr.ErrNotFound) {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}
		if err != nil {
			respondAppError(c, route, "user", err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		sess, err := sessions.Create(ctx, summaryOf(user))
		if err != nil {
			respondAppError(c, route, "session", err)
			return
		}

		token, err := tokens.Issue(sess)
		if err != nil {
			_ = sessions.Delete(ctx, sess.ID)
			respondAppError(c, route, "session", err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessions.CookieName(), sess.ID, int(sessions.TTL().Seconds()), "/", "", opts.SecureCookie, true)

		logger.Info("user logged in", zap.String("userId", user.ID.Hex()))
		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"expiresAt": sess.ExpiresAt,
			"user":      sess.User,
		})
	}
}

// Logout ends the current session, if any, and clears the cookie.
func Logout(current CurrentSession, sessions SessionStore, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/logout"
		defer handlePanic(c, route)

		sess, err := current.GetSession(c)
		if err != nil {
			logger.Debug("logout without valid session", zap.Error(err))
		}
		if sess != nil {
			if err := sessions.Delete(c.Request.Context(), sess.ID); err != nil {
				respondAppError(c, route, "session", err)
				return
			}
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessions.CookieName(), "", -1, "/", "", opts.SecureCookie, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// Me returns the user admitted by the API gate.
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
	}
}
