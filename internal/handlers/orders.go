package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/store"
)

type OrderBook interface {
	Create(ctx context.Context, req store.CheckoutRequest) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page store.Page) ([]models.Order, int64, error)
	List(ctx context.Context, f store.OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, number, status, tracking string) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, number, status string) (*models.Order, error)
}

type createOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	Items           []createOrderItemRequest `json:"items" binding:"required"`
	ShippingAddress models.ShippingAddress   `json:"shippingAddress"`
	Notes           string                   `json:"notes"`
}

// Prices and totals sent by the client are ignored; the order is priced from
// the catalog.
func buildCheckout(userID primitive.ObjectID, req createOrderRequest) (store.CheckoutRequest, error) {
	items := make([]store.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return store.CheckoutRequest{}, apperr.Invalid("productId", "invalid product id %q", item.ProductID)
		}
		items = append(items, store.CheckoutItem{ProductID: productID, Quantity: item.Quantity})
	}
	return store.CheckoutRequest{
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}, nil
}

/*
POST /api/orders
- items: productId + quantity
- stock is taken when the order is placed
*/
func CreateOrder(orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		checkout, err := buildCheckout(userID, req)
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}

		order, err := orders.Create(c.Request.Context(), checkout)
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}

		logger.Info("order placed",
			zap.String("orderNumber", order.OrderNumber),
			zap.String("userId", userID.Hex()),
			zap.Float64("total", order.Total),
		)
		c.JSON(http.StatusCreated, order)
	}
}

func GetMyOrders(orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}

		items, total, err := orders.ListByUser(c.Request.Context(), userID, page)
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}
		c.JSON(http.StatusOK, paginated(items, page, total))
	}
}

// GetMyOrder answers 404 for orders of other users unless the caller is an
// admin.
func GetMyOrder(orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:number"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		order, err := orders.FindByNumber(c.Request.Context(), c.Param("number"))
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}

		user := middleware.CurrentUser(c)
		if order.UserID != userID && user.Role != models.RoleAdmin {
			respondAppError(c, route, "order", apperr.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func GetAllOrders(orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/orders"
		defer handlePanic(c, route)

		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}

		items, total, err := orders.List(c.Request.Context(), store.OrderFilter{
			Status:        c.Query("status"),
			PaymentStatus: c.Query("paymentStatus"),
			Page:          page,
		})
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}
		c.JSON(http.StatusOK, paginated(items, page, total))
	}
}

type orderStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Tracking string `json:"tracking"`
}

func UpdateOrderStatus(orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/admin/orders/:number/status"
		defer handlePanic(c, route)

		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		order, err := orders.UpdateStatus(c.Request.Context(), c.Param("number"), req.Status, req.Tracking)
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}

		logger.Info("order status changed",
			zap.String("orderNumber", order.OrderNumber),
			zap.String("status", order.Status),
		)
		c.JSON(http.StatusOK, order)
	}
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

func UpdatePaymentStatus(orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/admin/orders/:number/payment"
		defer handlePanic(c, route)

		var req paymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		order, err := orders.UpdatePaymentStatus(c.Request.Context(), c.Param("number"), req.PaymentStatus)
		if err != nil {
			respondAppError(c, route, "order", err)
			return
		}

		logger.Info("payment status changed",
			zap.String("orderNumber", order.OrderNumber),
			zap.String("paymentStatus", order.PaymentStatus),
		)
		c.JSON(http.StatusOK, order)
	}
}
