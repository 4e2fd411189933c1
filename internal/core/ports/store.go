package ports

import (
	"context"
	"net/url"
)

// Store is the generic persistence contract the resource handlers operate
// against. An implementation binds one entity type to one collection; the
// behavioural differences between entity types live entirely behind this
// interface.
type Store[T any] interface {
	Insert(ctx context.Context, doc *T) (*T, error)
	// FindByID returns ErrDocumentNotFound when no record matches.
	FindByID(ctx context.Context, id string) (*T, error)
	// FindAll merges the scope filter with the query-string features
	// (filter, sort, projection, pagination). An empty result is success.
	FindAll(ctx context.Context, scope map[string]any, params url.Values) ([]T, error)
	// UpdateByID applies a partial patch and returns the post-update record,
	// or ErrDocumentNotFound when the id does not resolve.
	UpdateByID(ctx context.Context, id string, patch map[string]any) (*T, error)
	DeleteByID(ctx context.Context, id string) error
}
