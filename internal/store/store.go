// Package store persists storefront records in MongoDB. Every write is
// validated before it reaches the database and duplicate-key errors are
// reported as apperr.ConflictError.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/database"
)

const opTimeout = 5 * time.Second

// Page selects a window of results; zero values mean page 1 of DefaultLimit.
type Page struct {
	Page  int64
	Limit int64
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

func (p Page) normalized() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) apply(opts *options.FindOptions) *options.FindOptions {
	n := p.normalized()
	return opts.SetSkip((n.Page - 1) * n.Limit).SetLimit(n.Limit)
}

// Store groups the repositories over one database.
type Store struct {
	Users    *Users
	Products *Products
	Orders   *Orders
}

func New(db *mongo.Database, reg *database.Registry, orderOpts ...OrderOption) *Store {
	products := NewProducts(db, reg)
	return &Store{
		Users:    NewUsers(db, reg),
		Products: products,
		Orders:   NewOrders(db, reg, orderOpts...),
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

func now() time.Time {
	return time.Now()
}
