package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"storefront/internal/database"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: n},
		bson.E{Key: "nModified", Value: n},
	)
}

func countResponse(ns string, n int) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func duplicate(collection, index, field, value string) bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: test." + collection + " index: " + index + " dup key: { " + field + ": \"" + value + "\" }",
	})
}

func registry() *database.Registry {
	return database.Default()
}

func fixedNumber(time.Time) string {
	return "SF-20260101-TESTTEST"
}

func countUpdates(mt *mtest.T) int {
	n := 0
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == "update" {
			n++
		}
	}
	return n
}
