package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperr"
)

func TestDefaultRegistryIsInitialisedOnce(t *testing.T) {
	first := Default()
	second := Default()
	require.Same(t, first, second)

	kinds := first.Kinds()
	require.Len(t, kinds, 3)
	assert.Equal(t, []string{KindOrder, KindProduct, KindUser}, []string{kinds[0].Name, kinds[1].Name, kinds[2].Name})

	product := first.MustLookup(KindProduct)
	assert.Equal(t, "products", product.Collection)
}

func TestRegisterRejectsDuplicateKind(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Kind{Name: "Thing", Collection: "things"}))
	require.Error(t, reg.Register(Kind{Name: "Thing", Collection: "other"}))

	_, ok := reg.Lookup("Missing")
	assert.False(t, ok)
	assert.Panics(t, func() { reg.MustLookup("Missing") })
}

func TestUniqueFieldsAreIndexed(t *testing.T) {
	reg := Default()
	cases := map[string][2]string{
		"email":       {"users", "email_unique"},
		"slug":        {"products", "slug_unique"},
		"sku":         {"products", "sku_unique"},
		"orderNumber": {"orders", "orderNumber_unique"},
	}
	for field, loc := range cases {
		got, ok := reg.FieldForIndex(loc[0], loc[1])
		require.True(t, ok, field)
		assert.Equal(t, field, got)
	}

	_, ok := reg.FieldForIndex("orders", "userId_index")
	assert.False(t, ok)
}

func TestConflictMapsDuplicateKey(t *testing.T) {
	reg := Default()
	err := mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Index:   0,
		Code:    11000,
		Message: `E11000 duplicate key error collection: storefront.products index: slug_unique dup key: { slug: "red-cap" }`,
	}}}

	got := reg.Conflict("products", err)
	var conflict *apperr.ConflictError
	require.True(t, errors.As(got, &conflict))
	assert.Equal(t, "slug", conflict.Field)
	assert.Equal(t, "red-cap", conflict.Value)
}

func TestConflictPassesOtherErrors(t *testing.T) {
	reg := Default()
	plain := errors.New("connection reset")
	assert.Same(t, plain, reg.Conflict("products", plain))
	assert.NoError(t, reg.Conflict("products", nil))
}
