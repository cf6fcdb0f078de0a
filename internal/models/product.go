package models

import (
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultCategory = "caps"

// Product is a catalog entry. Slug and SKU are unique and never change once
// assigned; IsActive=false hides the product from the storefront.
type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title          string             `bson:"title" json:"title" validate:"required"`
	Slug           string             `bson:"slug" json:"slug" validate:"required,slug"`
	Description    string             `bson:"description" json:"description" validate:"required"`
	Price          float64            `bson:"price" json:"price" validate:"gte=0"`
	CompareAtPrice *float64           `bson:"compareAtPrice,omitempty" json:"compareAtPrice,omitempty" validate:"omitempty,gte=0"`
	Images         StringList         `bson:"images" json:"images"`
	Models         StringList         `bson:"models" json:"models"`
	Tags           StringList         `bson:"tags" json:"tags"`
	Category       string             `bson:"category" json:"category" validate:"required"`
	Stock          int                `bson:"stock" json:"stock" validate:"gte=0"`
	SKU            string             `bson:"sku" json:"sku" validate:"required"`
	Weight         *float64           `bson:"weight,omitempty" json:"weight,omitempty" validate:"omitempty,gte=0"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	IsOnSale       bool               `bson:"-" json:"isOnSale"`
	InStock        bool               `bson:"-" json:"inStock"`
	Timestamps     `bson:",inline"`
}

// ProductInput carries the admin-supplied fields of a new product. Nil
// pointers mean the field was omitted and its default applies.
type ProductInput struct {
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	CompareAtPrice *float64 `json:"compareAtPrice"`
	Images         []string `json:"images"`
	Models         []string `json:"models"`
	Tags           []string `json:"tags"`
	Category       *string  `json:"category"`
	Stock          *int     `json:"stock"`
	SKU            string   `json:"sku"`
	Weight         *float64 `json:"weight"`
	IsActive       *bool    `json:"isActive"`
}

// Build turns the input into a product with every default applied.
func (in ProductInput) Build() Product {
	p := Product{
		Title:          strings.TrimSpace(in.Title),
		Slug:           strings.TrimSpace(in.Slug),
		Description:    strings.TrimSpace(in.Description),
		Price:          in.Price,
		CompareAtPrice: in.CompareAtPrice,
		Images:         NewStringList(in.Images),
		Models:         NewStringList(in.Models),
		Tags:           NewTagList(in.Tags),
		SKU:            strings.ToUpper(strings.TrimSpace(in.SKU)),
		Weight:         in.Weight,
		IsActive:       true,
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	p.ApplyDefaults()
	return p
}

func (p *Product) ApplyDefaults() {
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultCategory
	}
	if p.Images == nil {
		p.Images = StringList{}
	}
	if p.Models == nil {
		p.Models = StringList{}
	}
	if p.Tags == nil {
		p.Tags = StringList{}
	}
}

func (p *Product) Validate() error {
	return validateRecord(p)
}

// Derive fills the response-only fields.
func (p *Product) Derive() {
	p.InStock = p.Stock > 0
	p.IsOnSale = p.CompareAtPrice != nil && *p.CompareAtPrice > p.Price
}

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
