package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const DefaultCountry = "US"

var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCanceled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

var paymentTransitions = map[string][]string{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPaid, PaymentStatusPending},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// OrderItem is a snapshot of the product taken at checkout. It does not follow
// later changes to the product.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId" validate:"required"`
	Title     string             `bson:"title" json:"title" validate:"required"`
	SKU       string             `bson:"sku" json:"sku" validate:"required"`
	Quantity  int                `bson:"quantity" json:"quantity" validate:"min=1"`
	Price     float64            `bson:"price" json:"price" validate:"gte=0"`
}

type ShippingAddress struct {
	Name    string `bson:"name" json:"name" validate:"required"`
	Street  string `bson:"street" json:"street" validate:"required"`
	City    string `bson:"city" json:"city" validate:"required"`
	State   string `bson:"state" json:"state" validate:"required"`
	ZipCode string `bson:"zipCode" json:"zipCode" validate:"required"`
	Country string `bson:"country" json:"country" validate:"required"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Order is never deleted; status and payment status move independently.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber" validate:"required"`
	Items           []OrderItem        `bson:"items" json:"items" validate:"min=1,dive"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal" validate:"gte=0"`
	Shipping        float64            `bson:"shipping" json:"shipping" validate:"gte=0"`
	Tax             float64            `bson:"tax" json:"tax" validate:"gte=0"`
	Total           float64            `bson:"total" json:"total" validate:"gte=0"`
	Status          string             `bson:"status" json:"status" validate:"oneof=pending confirmed processing shipped delivered canceled"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus" validate:"oneof=pending paid failed refunded"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	Tracking        string             `bson:"tracking,omitempty" json:"tracking,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Timestamps      `bson:",inline"`
}

func (a *ShippingAddress) ApplyDefaults() {
	a.Name = strings.TrimSpace(a.Name)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Phone = strings.TrimSpace(a.Phone)
	if strings.TrimSpace(a.Country) == "" {
		a.Country = DefaultCountry
	}
}

func (o *Order) ApplyDefaults() {
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentStatusPending
	}
	o.ShippingAddress.ApplyDefaults()
}

// Validate checks field constraints. The money invariant
// total == subtotal + shipping + tax is checked by the caller that computed
// the totals, see pricing.Check.
func (o *Order) Validate() error {
	return validateRecord(o)
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

func ValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// CheckStatusTransition reports whether an order may move from one fulfillment
// status to another.
func CheckStatusTransition(from, to string) error {
	if !ValidOrderStatus(to) {
		return apperr.Invalid("status", "must be one of [pending confirmed processing shipped delivered canceled]")
	}
	return checkTransition("status", orderTransitions, from, to)
}

func CheckPaymentTransition(from, to string) error {
	if !ValidPaymentStatus(to) {
		return apperr.Invalid("paymentStatus", "must be one of [pending paid failed refunded]")
	}
	return checkTransition("paymentStatus", paymentTransitions, from, to)
}

func checkTransition(field string, table map[string][]string, from, to string) error {
	if from == to {
		return nil
	}
	for _, next := range table[from] {
		if next == to {
			return nil
		}
	}
	return apperr.Invalid(field, "cannot move from %s to %s", from, to)
}
