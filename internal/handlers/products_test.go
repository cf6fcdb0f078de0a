package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

func TestGetProductsListsActiveOnly(t *testing.T) {
	app := newTestApp(t)
	app.products.items = []models.Product{
		product("Red Cap", "red-cap", 25, 3, true),
		product("Old Cap", "old-cap", 10, 0, false),
	}

	res := app.do(http.MethodGet, "/api/products?page=2&limit=5&category=caps&tag=Summer&search=red", nil)
	require.Equal(t, http.StatusOK, res.Code)

	filter := app.products.lastFilter
	assert.True(t, filter.ActiveOnly)
	assert.Equal(t, "caps", filter.Category)
	assert.Equal(t, "Summer", filter.Tag)
	assert.Equal(t, "red", filter.Search)
	assert.EqualValues(t, 2, filter.Page.Page)
	assert.EqualValues(t, 5, filter.Page.Limit)

	data := res.json["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "red-cap", data[0].(map[string]interface{})["slug"])

	pagination := res.json["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total"])
	assert.EqualValues(t, 1, pagination["totalPages"])
}

func TestGetProductsPagination(t *testing.T) {
	app := newTestApp(t)

	res := app.do(http.MethodGet, "/api/products?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "page", res.json["field"])

	res = app.do(http.MethodGet, "/api/products?limit=500", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 100, app.products.lastFilter.Page.Limit)

	app.products.listErr = errors.New("connection reset")
	res = app.do(http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "internal server error", res.json["error"])
}

func TestGetProductBySlug(t *testing.T) {
	app := newTestApp(t)
	onSale := product("Red Cap", "red-cap", 20, 3, true)
	was := 30.0
	onSale.CompareAtPrice = &was
	app.products.items = []models.Product{onSale, product("Old Cap", "old-cap", 10, 0, false)}

	res := app.do(http.MethodGet, "/api/products/red-cap", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Red Cap", res.json["title"])

	res = app.do(http.MethodGet, "/api/products/old-cap", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "product not found", res.json["error"])
}

func TestAdminProductRoutesAreGated(t *testing.T) {
	app := newTestApp(t)
	customer, _ := app.loginAs(t, models.RoleCustomer)

	res := app.do(http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Unauthorized", res.json["error"])

	res = app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{"title": "Cap"}, withCookie(customer))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Admin access required", res.json["error"])
	assert.Empty(t, app.products.items)
}

func TestCreateProductAppliesDefaults(t *testing.T) {
	app := newTestApp(t)
	admin, _ := app.loginAs(t, models.RoleAdmin)

	res := app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"title":       "Red Trucker Cap",
		"description": "Mesh back",
		"price":       24.5,
		"sku":         "cap-red-1",
		"tags":        []string{"Summer", "summer", " mesh "},
	}, withCookie(admin))
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	assert.Equal(t, "red-trucker-cap", res.json["slug"])
	assert.Equal(t, "CAP-RED-1", res.json["sku"])
	assert.Equal(t, models.DefaultCategory, res.json["category"])
	assert.EqualValues(t, 0, res.json["stock"])
	assert.Equal(t, true, res.json["isActive"])
	assert.Equal(t, false, res.json["inStock"])
	require.Len(t, app.products.items, 1)
}

func TestCreateProductRejections(t *testing.T) {
	app := newTestApp(t)
	admin, _ := app.loginAs(t, models.RoleAdmin)

	res := app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"title": "Cap", "description": "d", "price": -1, "sku": "X",
	}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "price", res.json["field"])

	res = app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"title": "Cap", "description": "d", "price": 5, "sku": "X", "stock": -2,
	}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "stock", res.json["field"])

	app.products.createErr = &apperr.ConflictError{Field: "slug", Value: "cap"}
	res = app.do(http.MethodPost, "/api/admin/products", map[string]interface{}{
		"title": "Cap", "description": "d", "price": 5, "sku": "X",
	}, withCookie(admin))
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "slug", res.json["field"])
}

func TestUpdateProduct(t *testing.T) {
	app := newTestApp(t)
	admin, _ := app.loginAs(t, models.RoleAdmin)
	p := product("Red Cap", "red-cap", 25, 3, true)
	app.products.items = []models.Product{p}
	path := "/api/admin/products/" + p.ID.Hex()

	res := app.do(http.MethodPut, path, map[string]interface{}{"price": 19.99, "stock": 0}, withCookie(admin))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.EqualValues(t, 19.99, res.json["price"])
	assert.Equal(t, false, res.json["inStock"])

	res = app.do(http.MethodPut, path, map[string]interface{}{"slug": "blue-cap"}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "slug", res.json["field"])

	res = app.do(http.MethodPut, path, map[string]interface{}{"sku": "NEW"}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "sku", res.json["field"])

	res = app.do(http.MethodPut, "/api/admin/products/not-an-id", map[string]interface{}{}, withCookie(admin))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = app.do(http.MethodPut, "/api/admin/products/"+product("x", "x", 1, 1, true).ID.Hex(), map[string]interface{}{}, withCookie(admin))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestDeleteProductDeactivates(t *testing.T) {
	app := newTestApp(t)
	admin, _ := app.loginAs(t, models.RoleAdmin)
	p := product("Red Cap", "red-cap", 25, 3, true)
	app.products.items = []models.Product{p}

	res := app.do(http.MethodDelete, "/api/admin/products/"+p.ID.Hex(), nil, withCookie(admin))
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, app.products.items, 1)
	assert.False(t, app.products.items[0].IsActive)

	res = app.do(http.MethodGet, "/api/products/red-cap", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = app.do(http.MethodGet, "/api/admin/products", nil, withCookie(admin))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.json["data"], 1)
}
