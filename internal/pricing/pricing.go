// Package pricing does the order money arithmetic in decimal so that
// total == subtotal + shipping + tax holds to the cent.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// Policy describes how shipping and tax are charged at checkout.
type Policy struct {
	ShippingFlat     float64
	FreeShippingOver float64
	TaxRate          float64
}

type Totals struct {
	Subtotal float64
	Shipping float64
	Tax      float64
	Total    float64
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Subtotal sums price*quantity over the line items.
func Subtotal(items []models.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return cents(sum)
}

// Compute returns the totals for the given items and explicit shipping and tax.
func Compute(items []models.OrderItem, shipping, tax float64) Totals {
	subtotal := Subtotal(items)
	ship := cents(decimal.NewFromFloat(shipping))
	t := cents(decimal.NewFromFloat(tax))
	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: ship.InexactFloat64(),
		Tax:      t.InexactFloat64(),
		Total:    subtotal.Add(ship).Add(t).InexactFloat64(),
	}
}

// Quote applies the policy: flat shipping unless the subtotal reaches the
// free-shipping threshold, and tax as a rate over the subtotal.
func (p Policy) Quote(items []models.OrderItem) Totals {
	subtotal := Subtotal(items)

	shipping := decimal.NewFromFloat(p.ShippingFlat)
	if p.FreeShippingOver > 0 && subtotal.GreaterThanOrEqual(decimal.NewFromFloat(p.FreeShippingOver)) {
		shipping = decimal.Zero
	}
	if len(items) == 0 {
		shipping = decimal.Zero
	}

	tax := cents(subtotal.Mul(decimal.NewFromFloat(p.TaxRate)))
	return Compute(items, shipping.InexactFloat64(), tax.InexactFloat64())
}

// Apply copies the totals onto the order.
func (t Totals) Apply(o *models.Order) {
	o.Subtotal = t.Subtotal
	o.Shipping = t.Shipping
	o.Tax = t.Tax
	o.Total = t.Total
}

// Check verifies the money invariants of an order before it is written.
func Check(o *models.Order) error {
	subtotal := cents(decimal.NewFromFloat(o.Subtotal))
	if !subtotal.Equal(Subtotal(o.Items)) {
		return apperr.Invalid("subtotal", "must equal the sum of line items (%s)", Subtotal(o.Items).StringFixed(2))
	}

	want := subtotal.
		Add(cents(decimal.NewFromFloat(o.Shipping))).
		Add(cents(decimal.NewFromFloat(o.Tax)))
	if !cents(decimal.NewFromFloat(o.Total)).Equal(want) {
		return apperr.Invalid("total", "must equal subtotal + shipping + tax (%s)", want.StringFixed(2))
	}
	return nil
}

// Discount is the saving shown for a product on sale, zero otherwise.
func Discount(p models.Product) float64 {
	if p.CompareAtPrice == nil {
		return 0
	}
	diff := decimal.NewFromFloat(*p.CompareAtPrice).Sub(decimal.NewFromFloat(p.Price))
	if !diff.IsPositive() {
		return 0
	}
	return cents(diff).InexactFloat64()
}
