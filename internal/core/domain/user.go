package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the enumerated user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User models an account holder. The password is stored as a bcrypt hash and
// is never serialized; reset-token fields hold a sha256 digest, never the raw
// token. Deactivated accounts keep their document with Active=false.
type User struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name                 string             `json:"name" bson:"name"`
	Email                string             `json:"email" bson:"email"`
	Photo                string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Role                 string             `json:"role" bson:"role"`
	Password             string             `json:"-" bson:"password"`
	PasswordChangedAt    time.Time          `json:"-" bson:"password_changed_at,omitempty"`
	PasswordResetToken   string             `json:"-" bson:"password_reset_token,omitempty"`
	PasswordResetExpires time.Time          `json:"-" bson:"password_reset_expires,omitempty"`
	Active               bool               `json:"-" bson:"active"`
	CreatedAt            time.Time          `json:"created_at" bson:"created_at"`
}

// ChangedPasswordAfter reports whether the password was changed at or after
// the given token issue time. Tokens issued before a password change must be
// rejected.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	return !u.PasswordChangedAt.Before(issuedAt)
}
