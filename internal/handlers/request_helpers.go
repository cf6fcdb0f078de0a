package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/store"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	logger.Debug("returning error",
		zap.String("route", route),
		zap.Int("status", status),
		zap.String("error", message),
	)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondAppError writes err with the status apperr assigns to it. subject
// names the record in not-found messages.
func respondAppError(c *gin.Context, route, subject string, err error) {
	var stockErr store.OutOfStockError
	if errors.As(err, &stockErr) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "insufficient stock",
			"productId": stockErr.ProductID.Hex(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}

	status := apperr.Status(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("request failed", zap.String("route", route), zap.Error(err))
		respondWithError(c, status, route, "internal server error")
	case http.StatusNotFound:
		respondWithError(c, status, route, subject+" not found")
	case http.StatusBadRequest, http.StatusConflict:
		logger.Debug("request rejected", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "field": apperr.Field(err)})
	default:
		respondWithError(c, status, route, err.Error())
	}
}

// respondValidationError reports a body that failed to bind.
func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldError := validationErrors[0]
		field := lowerCamel(fieldError.Field())
		message := fmt.Sprintf("%s is invalid", field)
		if fieldError.Tag() == "required" {
			message = fmt.Sprintf("%s is required", field)
		}
		logger.Debug("validation failed", zap.String("route", route), zap.String("field", field))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "field": field})
		return
	}

	respondWithError(c, http.StatusBadRequest, route, "invalid request body")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func parseObjectID(c *gin.Context, route, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(param)))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+param)
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUserID returns the id of the user admitted by the API gate.
func currentUserID(c *gin.Context, route string) (primitive.ObjectID, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondWithError(c, http.StatusUnauthorized, route, "Unauthorized")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		respondWithError(c, http.StatusUnauthorized, route, "Unauthorized")
		return primitive.NilObjectID, false
	}
	return id, true
}
