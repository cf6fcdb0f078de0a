package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/logger"
)

// ErrorPages renders error.html for errors that page handlers attach with
// c.Error. Unauthorized page requests are sent to the login page instead.
func ErrorPages(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.Status(err)

		if status == http.StatusUnauthorized && loginPath != "" && c.Request.Method == http.MethodGet {
			c.Redirect(http.StatusFound, loginPath+"?next="+c.Request.URL.Path)
			return
		}

		message := err.Error()
		if status >= http.StatusInternalServerError {
			logger.Error("page failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			message = "Something went wrong"
		}

		c.HTML(status, "error.html", gin.H{
			"Status":  status,
			"Title":   http.StatusText(status),
			"Message": message,
		})
	}
}
