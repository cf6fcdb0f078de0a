package handlers

import (
	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/middleware"
)

// UserDirectory is the user store as seen by the account and admin routes.
type UserDirectory interface {
	UserAccounts
	RoleSetter
}

// Identity resolves the session of the current request without enforcing it.
type Identity interface {
	CurrentSession
	UserLookup
}

type Deps struct {
	Users    UserDirectory
	Products ProductAdmin
	Orders   OrderBook
	Sessions SessionStore
	Tokens   TokenIssuer
	Identity Identity
	Gate     *auth.Gate
	Health   map[string]Pinger
	Auth     AuthOptions
}

const loginPath = "/login"

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", Health(d.Health))

	api := r.Group("/api")
	api.GET("/products", GetProducts(d.Products))
	api.GET("/products/:slug", GetProduct(d.Products))

	account := api.Group("/auth")
	account.POST("/register", Register(d.Users))
	account.POST("/login", Login(d.Users, d.Sessions, d.Tokens, d.Auth))
	account.POST("/logout", Logout(d.Identity, d.Sessions, d.Auth))
	account.GET("/me", middleware.APIAuth(d.Gate), Me())

	orders := api.Group("/orders", middleware.APIAuth(d.Gate))
	orders.POST("", CreateOrder(d.Orders))
	orders.GET("", GetMyOrders(d.Orders))
	orders.GET("/:number", GetMyOrder(d.Orders))

	admin := api.Group("/admin", middleware.APIAdmin(d.Gate))
	admin.GET("/products", GetAllProducts(d.Products))
	admin.POST("/products", CreateProduct(d.Products))
	admin.PUT("/products/:id", UpdateProduct(d.Products))
	admin.DELETE("/products/:id", DeleteProduct(d.Products))
	admin.GET("/orders", GetAllOrders(d.Orders))
	admin.PATCH("/orders/:number/status", UpdateOrderStatus(d.Orders))
	admin.PATCH("/orders/:number/payment", UpdatePaymentStatus(d.Orders))
	admin.PATCH("/users/:id/role", SetUserRole(d.Users))

	pages := r.Group("/", middleware.ErrorPages(loginPath))
	pages.GET("/", Home(d.Identity, d.Products))
	pages.GET(loginPath, LoginPage)
	pages.GET("/account", AccountPage(d.Gate, d.Orders))
	pages.GET("/admin", AdminPage(d.Gate, d.Products, d.Orders))
}
