package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/session"
	"storefront/internal/store"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u.ApplyDefaults()
	if err := u.Validate(); err != nil {
		return err
	}
	if _, ok := f.users[u.Email]; ok {
		return &apperr.ConflictError{Field: "email", Value: u.Email}
	}
	u.ID = primitive.NewObjectID()
	f.users[u.Email] = u
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[models.NormalizeEmail(email)]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) SetRole(_ context.Context, id primitive.ObjectID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !models.ValidRole(role) {
		return apperr.Invalid("role", "must be one of [customer admin]")
	}
	for _, u := range f.users {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return apperr.ErrNotFound
}

type fakeProducts struct {
	items      []models.Product
	lastFilter store.ProductFilter
	createErr  error
	listErr    error
}

func (f *fakeProducts) List(_ context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	out := make([]models.Product, 0)
	for _, p := range f.items {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProducts) FindBySlug(_ context.Context, slug string, activeOnly bool) (*models.Product, error) {
	for _, p := range f.items {
		if p.Slug == slug && (!activeOnly || p.IsActive) {
			p := p
			return &p, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = primitive.NewObjectID()
	p.Derive()
	f.items = append(f.items, *p)
	return nil
}

func (f *fakeProducts) Update(_ context.Context, id primitive.ObjectID, patch store.ProductPatch) (*models.Product, error) {
	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		if patch.Title != nil {
			f.items[i].Title = *patch.Title
		}
		if patch.Price != nil {
			f.items[i].Price = *patch.Price
		}
		if patch.Stock != nil {
			f.items[i].Stock = *patch.Stock
		}
		p := f.items[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		p.Derive()
		return &p, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeProducts) Deactivate(_ context.Context, id primitive.ObjectID) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsActive = false
			return nil
		}
	}
	return apperr.ErrNotFound
}

type fakeOrders struct {
	orders       []models.Order
	createErr    error
	lastCheckout store.CheckoutRequest
	lastFilter   store.OrderFilter
}

func (f *fakeOrders) Create(_ context.Context, req store.CheckoutRequest) (*models.Order, error) {
	f.lastCheckout = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	order := models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          req.UserID,
		OrderNumber:     fmt.Sprintf("SF-20261019-%08d", len(f.orders)+1),
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Title:     "Cap",
			SKU:       "CAP-1",
			Quantity:  item.Quantity,
			Price:     25,
		})
		order.Subtotal += 25 * float64(item.Quantity)
	}
	order.Total = order.Subtotal
	order.ApplyDefaults()
	f.orders = append(f.orders, order)
	return &order, nil
}

func (f *fakeOrders) find(number string) (*models.Order, error) {
	for i := range f.orders {
		if f.orders[i].OrderNumber == number {
			return &f.orders[i], nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeOrders) FindByNumber(_ context.Context, number string) (*models.Order, error) {
	o, err := f.find(number)
	if err != nil {
		return nil, err
	}
	out := *o
	return &out, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID primitive.ObjectID, _ store.Page) ([]models.Order, int64, error) {
	out := make([]models.Order, 0)
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) List(_ context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	f.lastFilter = filter
	out := make([]models.Order, 0)
	for _, o := range f.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, number, status, tracking string) (*models.Order, error) {
	o, err := f.find(number)
	if err != nil {
		return nil, err
	}
	if err := models.CheckStatusTransition(o.Status, status); err != nil {
		return nil, err
	}
	o.Status = status
	if tracking != "" {
		o.Tracking = tracking
	}
	out := *o
	return &out, nil
}

func (f *fakeOrders) UpdatePaymentStatus(_ context.Context, number, status string) (*models.Order, error) {
	o, err := f.find(number)
	if err != nil {
		return nil, err
	}
	if err := models.CheckPaymentTransition(o.PaymentStatus, status); err != nil {
		return nil, err
	}
	o.PaymentStatus = status
	out := *o
	return &out, nil
}

type testApp struct {
	router   *gin.Engine
	redis    *miniredis.Miniredis
	sessions *session.RedisStore
	users    *fakeUsers
	products *fakeProducts
	orders   *fakeOrders
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := session.NewRedisStore(client, time.Hour, "sid")
	tokens := session.NewTokenProvider("test-secret", time.Hour, sessions)
	accessor := session.NewAccessor(session.Chain{sessions, tokens})

	app := &testApp{
		redis:    mr,
		sessions: sessions,
		users:    newFakeUsers(),
		products: &fakeProducts{},
		orders:   &fakeOrders{},
	}

	tmpl, err := Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	RegisterRoutes(r, Deps{
		Users:    app.users,
		Products: app.products,
		Orders:   app.orders,
		Sessions: sessions,
		Tokens:   tokens,
		Identity: accessor,
		Gate:     auth.NewGate(accessor),
		Health: map[string]Pinger{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})
	app.router = r
	return app
}

// loginAs starts a session directly in the store and returns its cookie.
func (a *testApp) loginAs(t *testing.T, role string) (*http.Cookie, primitive.ObjectID) {
	t.Helper()
	id := primitive.NewObjectID()
	sess, err := a.sessions.Create(context.Background(), session.UserSummary{
		ID:    id.Hex(),
		Email: role + "@example.com",
		Name:  strings.ToUpper(role[:1]) + role[1:],
		Role:  role,
	})
	require.NoError(t, err)
	return &http.Cookie{Name: a.sessions.CookieName(), Value: sess.ID}, id
}

type response struct {
	*httptest.ResponseRecorder
	json map[string]interface{}
}

func (a *testApp) do(method, path string, body interface{}, opts ...func(*http.Request)) response {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	res := response{ResponseRecorder: w, json: map[string]interface{}{}}
	_ = json.Unmarshal(w.Body.Bytes(), &res.json)
	return res
}

func withCookie(cookie *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(cookie) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func product(title, slug string, price float64, stock int, active bool) models.Product {
	return models.Product{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Slug:        slug,
		Description: title + " description",
		Price:       price,
		Category:    models.DefaultCategory,
		Stock:       stock,
		SKU:         strings.ToUpper(slug),
		IsActive:    active,
	}
}
