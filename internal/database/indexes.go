package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"storefront/internal/logger"
)

// EnsureIndexes creates every index of every registered kind.
func EnsureIndexes(db *mongo.Database, reg *Registry) error {
	for _, kind := range reg.Kinds() {
		if err := ensureKindIndexes(db, kind); err != nil {
			return err
		}
	}
	return nil
}

func ensureKindIndexes(db *mongo.Database, kind Kind) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(kind.Indexes) == 0 {
		return nil
	}

	models := make([]mongo.IndexModel, 0, len(kind.Indexes))
	for _, idx := range kind.Indexes {
		models = append(models, idx.model())
	}

	names, err := db.Collection(kind.Collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		logger.Error("index creation failed", zap.String("collection", kind.Collection), zap.Error(err))
		return fmt.Errorf("ensure %s indexes: %w", kind.Collection, err)
	}
	logger.Info("indexes ensured", zap.String("collection", kind.Collection), zap.Strings("indexes", names))
	return nil
}
