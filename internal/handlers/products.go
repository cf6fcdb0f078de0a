package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type ProductCatalog interface {
	List(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error)
	FindBySlug(ctx context.Context, slug string, activeOnly bool) (*models.Product, error)
}

type ProductAdmin interface {
	ProductCatalog
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, patch store.ProductPatch) (*models.Product, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

func productFilter(c *gin.Context, activeOnly bool) (store.ProductFilter, error) {
	page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		return store.ProductFilter{}, err
	}
	return store.ProductFilter{
		ActiveOnly: activeOnly,
		Category:   c.Query("category"),
		Tag:        c.Query("tag"),
		Search:     c.Query("search"),
		Page:       page,
	}, nil
}

/*
GET /api/products
- only active products
- filters: category, tag, search; page + limit
*/
func GetProducts(products ProductCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		filter, err := productFilter(c, true)
		if err != nil {
			respondAppError(c, route, "product", err)
			return
		}

		items, total, err := products.List(c.Request.Context(), filter)
		if err != nil {
			respondAppError(c, route, "product", err)
			return
		}
		c.JSON(http.StatusOK, paginated(items, filter.Page, total))
	}
}

func GetProduct(products ProductCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:slug"
		defer handlePanic(c, route)

		product, err := products.FindBySlug(c.Request.Context(), c.Param("slug"), true)
		if err != nil {
			respondAppError(c, route, "product", err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// GetAllProducts lists inactive products too unless ?isActive=true.
func GetAllProducts(products ProductAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/products"
		defer handlePanic(c, route)

		filter, err := productFilter(c, false)
		if err != nil {
			respondAppError(c, route, "product", err)
			return
		}
		if strings.EqualFold(strings.TrimSpace(c.Query("isActive")), "true") {
			filter.ActiveOnly = true
		}

		items, total, err := products.List(c.Request.Context(), filter)
		if err != nil {
			respondAppError(c, route, "product", err)
			return
		}
		c.JSON(http.StatusOK, paginated(items, filter.Page, total))
	}
}

func CreateProduct(products ProductAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/products"
		defer handlePanic(c, route)

		var input models.ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondValidationError(c, route, err)
			return
		}

		product := input.Build()
		if err := products.Create(c.Request.Context(), &product); err != nil {
			respondAppError(c, route, "product", err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

type productUpdateRequest struct {
	store.ProductPatch
	Slug *string `json:"slug"`
	SKU  *string `json:"sku"`
}

func UpdateProduct(products ProductAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/products/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectID(c, route, "id")
		if !ok {
			return
		}

		var req productUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		if req.Slug != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "slug cannot be changed", "field": "slug"})
			return
		}
		if req.SKU != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "sku cannot be changed", "field": "sku"})
			return
		}

		product, err := products.Update(c.Request.Context(), id, req.ProductPatch)
		if err != nil {
			respondAppError(c, route, "product", err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// DeleteProduct deactivates the product; orders keep referring to it.
func DeleteProduct(products ProductAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/products/:id"
		defer handlePanic(c, route)

		id, ok := parseObjectID(c, route, "id")
		if !ok {
			return
		}

		if err := products.Deactivate(c.Request.Context(), id); err != nil {
			respondAppError(c, route, "product", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "product deactivated"})
	}
}
