package database

import (
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	KindUser    = "User"
	KindProduct = "Product"
	KindOrder   = "Order"
)

// Index describes one index of a record kind. Unique indexes carry the JSON
// field name reported when a write collides with them.
type Index struct {
	Name   string
	Keys   bson.D
	Unique bool
	Field  string
}

// Kind binds a record kind to its collection and indexes.
type Kind struct {
	Name       string
	Collection string
	Indexes    []Index
}

// Registry maps record-kind names to their definitions. It is filled once at
// startup and only read afterwards.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

func NewRegistry() *Registry {
	return &Registry{kinds: map[string]Kind{}}
}

// Register adds a kind; registering the same name twice is an error.
func (r *Registry) Register(k Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.kinds[k.Name]; ok {
		return fmt.Errorf("record kind %q already registered", k.Name)
	}
	r.kinds[k.Name] = k
	return nil
}

func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.kinds[name]
	return k, ok
}

// MustLookup panics for a kind that was never registered.
func (r *Registry) MustLookup(name string) Kind {
	k, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("record kind %q not registered", name))
	}
	return k
}

// Kinds returns every registered kind ordered by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FieldForIndex returns the field guarded by the named unique index.
func (r *Registry) FieldForIndex(collection, index string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.kinds {
		if collection != "" && k.Collection != collection {
			continue
		}
		for _, idx := range k.Indexes {
			if idx.Unique && idx.Name == index {
				return idx.Field, true
			}
		}
	}
	return "", false
}

func (i Index) model() mongo.IndexModel {
	opts := options.Index().SetName(i.Name)
	if i.Unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: i.Keys, Options: opts}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process registry with the storefront kinds.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, k := range storefrontKinds() {
			if err := defaultRegistry.Register(k); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}

func storefrontKinds() []Kind {
	return []Kind{
		{
			Name:       KindUser,
			Collection: "users",
			Indexes: []Index{
				{Name: "email_unique", Keys: bson.D{{Key: "email", Value: 1}}, Unique: true, Field: "email"},
			},
		},
		{
			Name:       KindProduct,
			Collection: "products",
			Indexes: []Index{
				{Name: "slug_unique", Keys: bson.D{{Key: "slug", Value: 1}}, Unique: true, Field: "slug"},
				{Name: "sku_unique", Keys: bson.D{{Key: "sku", Value: 1}}, Unique: true, Field: "sku"},
				{Name: "active_category_index", Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
		{
			Name:       KindOrder,
			Collection: "orders",
			Indexes: []Index{
				{Name: "orderNumber_unique", Keys: bson.D{{Key: "orderNumber", Value: 1}}, Unique: true, Field: "orderNumber"},
				{Name: "userId_index", Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
	}
}
