package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
)

// Store binds one entity type to one collection and implements the generic
// persistence contract. The base filter is merged into every read and
// delete, so implicit scoping (soft-deleted users, secret tours) is declared
// once per collection instead of intercepting queries.
type Store[T any] struct {
	coll *mongo.Collection
	base bson.M
}

// NewStore creates a Store over coll. base may be nil.
func NewStore[T any](coll *mongo.Collection, base bson.M) *Store[T] {
	return &Store[T]{coll: coll, base: base}
}

// Collection exposes the underlying collection for repository-specific
// queries and index creation.
func (s *Store[T]) Collection() *mongo.Collection {
	return s.coll
}

// Insert persists doc and returns the stored record, id included.
func (s *Store[T]) Insert(ctx context.Context, doc *T) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", s.coll.Name(), err)
	}

	// Fetch back so the caller gets the document exactly as stored.
	var created T
	if err := s.coll.FindOne(ctx, bson.M{"_id": res.InsertedID}).Decode(&created); err != nil {
		return nil, fmt.Errorf("read back %s: %w", s.coll.Name(), err)
	}
	return &created, nil
}

func (s *Store[T]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := s.scoped(bson.M{"_id": oid})
	var doc T
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("find %s: %w", s.coll.Name(), err)
	}
	return &doc, nil
}

func (s *Store[T]) FindAll(ctx context.Context, scope map[string]any, params url.Values) ([]T, error) {
	filter, opts := NewFeatures(params).
		Filter().
		Sort().
		LimitFields().
		Paginate().
		Build()

	// Scope and base override whatever the query string asked for.
	for k, v := range scope {
		filter[k] = v
	}
	filter = s.scoped(filter)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.coll.Name(), err)
	}
	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.coll.Name(), err)
	}
	return docs, nil
}

func (s *Store[T]) UpdateByID(ctx context.Context, id string, patch map[string]any) (*T, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated T
	err = s.coll.FindOneAndUpdate(
		ctx,
		s.scoped(bson.M{"_id": oid}),
		bson.M{"$set": bson.M(patch)},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("update %s: %w", s.coll.Name(), err)
	}
	return &updated, nil
}

func (s *Store[T]) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, s.scoped(bson.M{"_id": oid}))
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// scoped merges the base filter over filter. Base wins on conflicts.
func (s *Store[T]) scoped(filter bson.M) bson.M {
	for k, v := range s.base {
		filter[k] = v
	}
	return filter
}
