package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/models"
)

type Products struct {
	coll *mongo.Collection
	reg  *database.Registry
}

func NewProducts(db *mongo.Database, reg *database.Registry) *Products {
	kind := reg.MustLookup(database.KindProduct)
	return &Products{coll: db.Collection(kind.Collection), reg: reg}
}

// ProductFilter narrows a listing. ActiveOnly is set for storefront reads.
type ProductFilter struct {
	ActiveOnly bool
	Category   string
	Tag        string
	Search     string
	Page       Page
}

func (f ProductFilter) query() bson.M {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		filter["category"] = category
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		filter["tags"] = tag
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := regexp.QuoteMeta(search)
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
			{"sku": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

// ProductPatch lists the fields an admin may change. Slug and SKU are
// identifiers and cannot be patched.
type ProductPatch struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Price          *float64  `json:"price"`
	CompareAtPrice *float64  `json:"compareAtPrice"`
	ClearCompareAt bool      `json:"clearCompareAtPrice"`
	Images         *[]string `json:"images"`
	Models         *[]string `json:"models"`
	Tags           *[]string `json:"tags"`
	Category       *string   `json:"category"`
	Stock          *int      `json:"stock"`
	Weight         *float64  `json:"weight"`
	IsActive       *bool     `json:"isActive"`
}

func (p ProductPatch) apply(prod *models.Product) {
	if p.Title != nil {
		prod.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		prod.Description = strings.TrimSpace(*p.Description)
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.ClearCompareAt {
		prod.CompareAtPrice = nil
	} else if p.CompareAtPrice != nil {
		prod.CompareAtPrice = p.CompareAtPrice
	}
	if p.Images != nil {
		prod.Images = models.NewStringList(*p.Images)
	}
	if p.Models != nil {
		prod.Models = models.NewStringList(*p.Models)
	}
	if p.Tags != nil {
		prod.Tags = models.NewTagList(*p.Tags)
	}
	if p.Category != nil {
		prod.Category = strings.TrimSpace(*p.Category)
	}
	if p.Stock != nil {
		prod.Stock = *p.Stock
	}
	if p.Weight != nil {
		prod.Weight = p.Weight
	}
	if p.IsActive != nil {
		prod.IsActive = *p.IsActive
	}
	prod.ApplyDefaults()
}

// Create inserts a product; slug and sku indexes reject duplicates.
func (s *Products) Create(ctx context.Context, p *models.Product) error {
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	p.Touch(now())

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return s.reg.Conflict(s.coll.Name(), err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	p.Derive()
	return nil
}

func (s *Products) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindBySlug loads a product by its URL key. activeOnly hides deactivated
// products from storefront reads.
func (s *Products) FindBySlug(ctx context.Context, slug string, activeOnly bool) (*models.Product, error) {
	filter := bson.M{"slug": strings.TrimSpace(slug)}
	if activeOnly {
		filter["isActive"] = true
	}
	return s.findOne(ctx, filter)
}

func (s *Products) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var p models.Product
	err := s.coll.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	p.Derive()
	return &p, nil
}

// List returns one page of products, newest first, with the total match count.
func (s *Products) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := f.query()
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	opts := f.Page.apply(options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	for i := range products {
		products[i].Derive()
	}
	return products, total, nil
}

// Update applies the patch to the stored product and writes the mutable
// fields back.
func (s *Products) Update(ctx context.Context, id primitive.ObjectID, patch ProductPatch) (*models.Product, error) {
	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.apply(existing)
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	existing.Touch(now())

	set := bson.M{
		"title":       existing.Title,
		"description": existing.Description,
		"price":       existing.Price,
		"images":      existing.Images,
		"models":      existing.Models,
		"tags":        existing.Tags,
		"category":    existing.Category,
		"stock":       existing.Stock,
		"isActive":    existing.IsActive,
		"updatedAt":   existing.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if existing.CompareAtPrice != nil {
		set["compareAtPrice"] = *existing.CompareAtPrice
	} else {
		update["$unset"] = bson.M{"compareAtPrice": ""}
	}
	if existing.Weight != nil {
		set["weight"] = *existing.Weight
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, apperr.ErrNotFound
	}
	existing.Derive()
	return existing, nil
}

// Deactivate hides a product from the storefront without deleting it.
func (s *Products) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"isActive": false, "updatedAt": now().UTC()}})
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
