package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/pricing"
)

// OutOfStockError is returned when a checkout asks for more units than the
// product has left.
type OutOfStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock: requested %d, available %d", e.ProductID.Hex(), e.Requested, e.Available)
}

type CheckoutItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// CheckoutRequest is what a customer submits to place an order.
type CheckoutRequest struct {
	UserID          primitive.ObjectID
	Items           []CheckoutItem
	ShippingAddress models.ShippingAddress
	Notes           string
}

type OrderFilter struct {
	Status        string
	PaymentStatus string
	Page          Page
}

type Orders struct {
	coll         *mongo.Collection
	products     *mongo.Collection
	reg          *database.Registry
	policy       pricing.Policy
	transactions bool
	number       func(time.Time) string
}

type OrderOption func(*Orders)

func WithPricing(p pricing.Policy) OrderOption {
	return func(o *Orders) { o.policy = p }
}

// WithoutTransactions runs checkout steps one by one for deployments without
// replica sets; stock taken before a failure is given back.
func WithoutTransactions() OrderOption {
	return func(o *Orders) { o.transactions = false }
}

func WithOrderNumbers(fn func(time.Time) string) OrderOption {
	return func(o *Orders) { o.number = fn }
}

func NewOrders(db *mongo.Database, reg *database.Registry, opts ...OrderOption) *Orders {
	o := &Orders{
		coll:         db.Collection(reg.MustLookup(database.KindOrder).Collection),
		products:     db.Collection(reg.MustLookup(database.KindProduct).Collection),
		reg:          reg,
		transactions: true,
		number:       NewOrderNumber,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewOrderNumber returns SF-YYYYMMDD-XXXXXXXX.
func NewOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SF-%s-%s", t.UTC().Format("20060102"), suffix)
}

func (s *Orders) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	session, err := s.coll.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// MaxItemQuantity caps the units of one product in a single order.
const MaxItemQuantity = 999

// lineItem is a checkout item merged by product; line is the request index
// where the product first appeared.
type lineItem struct {
	CheckoutItem
	line int
}

func mergeItems(items []CheckoutItem) ([]lineItem, error) {
	if len(items) == 0 {
		return nil, apperr.Invalid("items", "must contain at least 1 entry")
	}

	merged := make([]lineItem, 0, len(items))
	index := map[primitive.ObjectID]int{}
	for i, item := range items {
		if item.ProductID.IsZero() {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		if item.Quantity < 1 {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be >= 1")
		}
		if item.Quantity > MaxItemQuantity {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be <= %d", MaxItemQuantity)
		}
		if at, ok := index[item.ProductID]; ok {
			if merged[at].Quantity+item.Quantity > MaxItemQuantity {
				return nil, apperr.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be <= %d per product", MaxItemQuantity)
			}
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, lineItem{CheckoutItem: item, line: i})
	}
	return merged, nil
}

// Create places an order: every line item is snapshotted from the live
// product, stock is taken, totals are computed and the order is inserted with
// status and payment status pending.
func (s *Orders) Create(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		Notes:           strings.TrimSpace(req.Notes),
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}
	order.ApplyDefaults()

	ctx, cancel := context.WithTimeout(ctx, 2*opTimeout)
	defer cancel()

	var taken []models.OrderItem
	err = s.runTx(ctx, func(ctx context.Context) error {
		taken = taken[:0]
		snapshots := make([]models.OrderItem, 0, len(items))

		for _, item := range items {
			var product models.Product
			err := s.products.FindOne(ctx, bson.M{"_id": item.ProductID, "isActive": true}).Decode(&product)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.Invalid(fmt.Sprintf("items[%d].productId", item.line), "product %s is not available", item.ProductID.Hex())
			}
			if err != nil {
				return fmt.Errorf("load product: %w", err)
			}
			if product.Stock < item.Quantity {
				return OutOfStockError{ProductID: item.ProductID, Available: product.Stock, Requested: item.Quantity}
			}

			res, err := s.products.UpdateOne(ctx,
				bson.M{"_id": item.ProductID, "stock": bson.M{"$gte": item.Quantity}},
				bson.M{"$inc": bson.M{"stock": -item.Quantity}},
			)
			if err != nil {
				return fmt.Errorf("take stock: %w", err)
			}
			if res.MatchedCount == 0 {
				return OutOfStockError{ProductID: item.ProductID, Available: product.Stock, Requested: item.Quantity}
			}

			snapshot := models.OrderItem{
				ProductID: product.ID,
				Title:     product.Title,
				SKU:       product.SKU,
				Quantity:  item.Quantity,
				Price:     product.Price,
			}
			snapshots = append(snapshots, snapshot)
			taken = append(taken, snapshot)
		}

		order.Items = snapshots
		s.policy.Quote(order.Items).Apply(order)
		order.OrderNumber = s.number(now())
		order.Touch(now())

		if err := order.Validate(); err != nil {
			return err
		}
		if err := pricing.Check(order); err != nil {
			return err
		}

		res, err := s.coll.InsertOne(ctx, order)
		if err != nil {
			return s.reg.Conflict(s.coll.Name(), err)
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}
		return nil
	})
	if err != nil {
		if !s.transactions && len(taken) > 0 {
			s.restock(context.Background(), taken)
		}
		return nil, err
	}
	return order, nil
}

func (s *Orders) restock(ctx context.Context, items []models.OrderItem) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	for _, item := range items {
		if _, err := s.products.UpdateByID(ctx, item.ProductID, bson.M{"$inc": bson.M{"stock": item.Quantity}}); err != nil {
			logger.Error("restock failed",
				zap.String("productId", item.ProductID.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *Orders) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"orderNumber": strings.TrimSpace(number)})
}

func (s *Orders) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var o models.Order
	err := s.coll.FindOne(ctx, filter).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func (s *Orders) ListByUser(ctx context.Context, userID primitive.ObjectID, page Page) ([]models.Order, int64, error) {
	return s.list(ctx, bson.M{"userId": userID}, page)
}

func (s *Orders) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		if !models.ValidOrderStatus(f.Status) {
			return nil, 0, apperr.Invalid("status", "must be one of [pending confirmed processing shipped delivered canceled]")
		}
		filter["status"] = f.Status
	}
	if f.PaymentStatus != "" {
		if !models.ValidPaymentStatus(f.PaymentStatus) {
			return nil, 0, apperr.Invalid("paymentStatus", "must be one of [pending paid failed refunded]")
		}
		filter["paymentStatus"] = f.PaymentStatus
	}
	return s.list(ctx, filter, f.Page)
}

func (s *Orders) list(ctx context.Context, filter bson.M, page Page) ([]models.Order, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := page.apply(options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves an order along its fulfillment flow. Cancelling returns
// the items to stock. A non-empty tracking value is stored with the change.
func (s *Orders) UpdateStatus(ctx context.Context, number, status, tracking string) (*models.Order, error) {
	order, err := s.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := models.CheckStatusTransition(order.Status, status); err != nil {
		return nil, err
	}

	from := order.Status
	order.Status = status
	if t := strings.TrimSpace(tracking); t != "" {
		order.Tracking = t
	}
	order.Touch(now())

	set := bson.M{"status": order.Status, "updatedAt": order.UpdatedAt}
	if order.Tracking != "" {
		set["tracking"] = order.Tracking
	}

	ctx, cancel := context.WithTimeout(ctx, 2*opTimeout)
	defer cancel()

	err = s.runTx(ctx, func(ctx context.Context) error {
		res, err := s.coll.UpdateOne(ctx, bson.M{"_id": order.ID, "status": from}, bson.M{"$set": set})
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if res.MatchedCount == 0 {
			return &apperr.ConflictError{Field: "status", Value: from}
		}
		if status != models.OrderStatusCanceled || from == models.OrderStatusCanceled {
			return nil
		}
		for _, item := range order.Items {
			_, err := s.products.UpdateByID(ctx, item.ProductID, bson.M{"$inc": bson.M{"stock": item.Quantity}})
			if err == nil {
				continue
			}
			if s.transactions {
				return fmt.Errorf("restock: %w", err)
			}
			// The cancel is already written; report the lost units and go on.
			logger.Error("restock failed",
				zap.String("orderNumber", order.OrderNumber),
				zap.String("productId", item.ProductID.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdatePaymentStatus records a payment outcome reported by the payment
// provider or an admin.
func (s *Orders) UpdatePaymentStatus(ctx context.Context, number, status string) (*models.Order, error) {
	order, err := s.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := models.CheckPaymentTransition(order.PaymentStatus, status); err != nil {
		return nil, err
	}

	from := order.PaymentStatus
	order.PaymentStatus = status
	order.Touch(now())

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": order.ID, "paymentStatus": from},
		bson.M{"$set": bson.M{"paymentStatus": status, "updatedAt": order.UpdatedAt}},
	)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, &apperr.ConflictError{Field: "paymentStatus", Value: from}
	}
	return order, nil
}
