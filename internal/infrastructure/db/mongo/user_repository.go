package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

const usersCollection = "users"

// UserRepository persists user accounts. Every read through it excludes
// deactivated accounts; deleteMe flips the active flag instead of removing
// the document.
type UserRepository struct {
	*Store[domain.User]
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	coll := db.Collection(usersCollection)
	return &UserRepository{
		Store: NewStore[domain.User](coll, bson.M{"active": bson.M{"$ne": false}}),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	return r.Insert(ctx, user)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"email":  strings.ToLower(strings.TrimSpace(email)),
		"active": bson.M{"$ne": false},
	}
	var user domain.User
	if err := r.Collection().FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"password_reset_token":   tokenHash,
		"password_reset_expires": bson.M{"$gt": time.Now().UTC()},
		"active":                 bson.M{"$ne": false},
	}
	var user domain.User
	if err := r.Collection().FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expires time.Time) error {
	return r.updateFields(ctx, id, bson.M{
		"$set": bson.M{
			"password_reset_token":   tokenHash,
			"password_reset_expires": expires.UTC(),
		},
	})
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	return r.updateFields(ctx, id, bson.M{
		"$unset": bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash string, changedAt time.Time) error {
	return r.updateFields(ctx, id, bson.M{
		"$set": bson.M{
			"password":            hash,
			"password_changed_at": changedAt.UTC(),
		},
		"$unset": bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
	})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, fields map[string]any) (*domain.User, error) {
	return r.UpdateByID(ctx, id, fields)
}

func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	return r.updateFields(ctx, id, bson.M{"$set": bson.M{"active": false}})
}

func (r *UserRepository) updateFields(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.Collection().UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the unique email index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.Collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
