package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/logger"
	"storefront/internal/middleware"
)

type RoleSetter interface {
	SetRole(ctx context.Context, id primitive.ObjectID, role string) error
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetUserRole changes a user's role. Sessions already issued keep the old
// role until the user logs in again.
func SetUserRole(users RoleSetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/admin/users/:id/role"
		defer handlePanic(c, route)

		id, ok := parseObjectID(c, route, "id")
		if !ok {
			return
		}

		var req roleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		if err := users.SetRole(c.Request.Context(), id, req.Role); err != nil {
			respondAppError(c, route, "user", err)
			return
		}

		fields := []zap.Field{zap.String("userId", id.Hex()), zap.String("role", req.Role)}
		if admin := middleware.CurrentUser(c); admin != nil {
			fields = append(fields, zap.String("by", admin.ID))
		}
		logger.Info("user role changed", fields...)
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "role": req.Role})
	}
}
