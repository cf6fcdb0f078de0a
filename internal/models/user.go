package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a storefront account. Role is the only authorization signal.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email" validate:"required,email"`
	Name         string             `bson:"name" json:"name" validate:"required"`
	PasswordHash string             `bson:"passwordHash,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role" validate:"oneof=customer admin"`
	Timestamps   `bson:",inline"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) ApplyDefaults() {
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	if u.Role == "" {
		u.Role = RoleCustomer
	}
}

func (u *User) Validate() error {
	return validateRecord(u)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func ValidRole(role string) bool {
	return role == RoleCustomer || role == RoleAdmin
}
