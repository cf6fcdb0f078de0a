package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/session"
	"storefront/internal/store"
)

// PageGate is the raising half of auth.Gate. Page handlers hand its errors to
// c.Error and the error page middleware renders them.
type PageGate interface {
	RequireAuth(c *gin.Context) (*session.Session, error)
	RequireAdmin(c *gin.Context) (*session.Session, error)
}

type UserLookup interface {
	GetCurrentUser(c *gin.Context) *session.UserSummary
}

const featuredProducts = 8

func Home(users UserLookup, products ProductCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, _, err := products.List(c.Request.Context(), store.ProductFilter{
			ActiveOnly: true,
			Page:       store.Page{Page: 1, Limit: featuredProducts},
		})
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.HTML(http.StatusOK, "home.html", gin.H{
			"User":     users.GetCurrentUser(c),
			"Products": items,
		})
	}
}

func LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Next": safeNext(c.Query("next"))})
}

// safeNext keeps a post-login redirect on this site. Anything but a plain
// local path becomes "".
func safeNext(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return raw
}

func AccountPage(gate PageGate, orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := gate.RequireAuth(c)
		if err != nil {
			_ = c.Error(err)
			return
		}

		userID, err := primitive.ObjectIDFromHex(sess.User.ID)
		if err != nil {
			_ = c.Error(apperr.ErrUnauthorized)
			return
		}

		items, total, err := orders.ListByUser(c.Request.Context(), userID, store.Page{Page: 1, Limit: store.DefaultLimit})
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.HTML(http.StatusOK, "account.html", gin.H{
			"User":        sess.User,
			"Orders":      items,
			"TotalOrders": total,
		})
	}
}

func AdminPage(gate PageGate, products ProductCatalog, orders OrderBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := gate.RequireAdmin(c)
		if err != nil {
			_ = c.Error(err)
			return
		}

		ctx := c.Request.Context()
		_, productCount, err := products.List(ctx, store.ProductFilter{Page: store.Page{Page: 1, Limit: 1}})
		if err != nil {
			_ = c.Error(err)
			return
		}
		pending, pendingCount, err := orders.List(ctx, store.OrderFilter{
			Status: models.OrderStatusPending,
			Page:   store.Page{Page: 1, Limit: store.DefaultLimit},
		})
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.HTML(http.StatusOK, "admin.html", gin.H{
			"User":          sess.User,
			"ProductCount":  productCount,
			"PendingCount":  pendingCount,
			"PendingOrders": pending,
		})
	}
}
