package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/models"
)

type Users struct {
	coll *mongo.Collection
	reg  *database.Registry
}

func NewUsers(db *mongo.Database, reg *database.Registry) *Users {
	kind := reg.MustLookup(database.KindUser)
	return &Users{coll: db.Collection(kind.Collection), reg: reg}
}

// Create inserts a new user; the email index rejects duplicates.
func (s *Users) Create(ctx context.Context, u *models.User) error {
	u.ApplyDefaults()
	if err := u.Validate(); err != nil {
		return err
	}
	u.Touch(now())

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		return s.reg.Conflict(s.coll.Name(), err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (s *Users) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u models.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// SetRole changes the role of a user; this is the only role mutation.
func (s *Users) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.ValidRole(role) {
		return apperr.Invalid("role", "must be one of [customer admin]")
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"role": role, "updatedAt": now().UTC()}})
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
