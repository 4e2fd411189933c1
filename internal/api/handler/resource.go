package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// envelope is the success wrapper shared by every resource endpoint. List
// responses additionally carry the page's result count.
type envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data"`
}

type dataWrap struct {
	Data any `json:"data"`
}

func respondOne(c echo.Context, code int, doc any) error {
	return c.JSON(code, envelope{Status: "success", Data: dataWrap{Data: doc}})
}

func respondList(c echo.Context, docs any, results int) error {
	return c.JSON(http.StatusOK, envelope{Status: "success", Results: &results, Data: dataWrap{Data: docs}})
}

// Resource builds the five standard CRUD handlers for one entity type over
// its generic store. Per-entity behaviour plugs in through the hook fields;
// every hook is optional and the zero hook set yields plain CRUD.
type Resource[T any] struct {
	store ports.Store[T]

	// Scope returns a server-side filter merged into every read. Nested
	// routes use it to pin the parent id.
	Scope func(c echo.Context) map[string]any

	// PrepareCreate fills server-controlled fields and validates the decoded
	// body before it is inserted.
	PrepareCreate func(c echo.Context, doc *T) error

	// ExpandOne loads explicit relations onto a single fetched document.
	ExpandOne func(c echo.Context, doc *T) error

	// AllowedPatch restricts which body fields an update may set. Empty
	// means any field.
	AllowedPatch []string

	// Overrides replace the store call for resources whose writes carry
	// side effects. Nil falls through to the store.
	CreateFn func(ctx context.Context, doc *T) (*T, error)
	UpdateFn func(ctx context.Context, id string, patch map[string]any) (*T, error)
	DeleteFn func(ctx context.Context, id string) error
}

func NewResource[T any](store ports.Store[T]) *Resource[T] {
	return &Resource[T]{store: store}
}

// Create handles POST /. 201 with the stored document.
func (r *Resource[T]) Create(c echo.Context) error {
	doc := new(T)
	if err := c.Bind(doc); err != nil {
		return err
	}
	if r.PrepareCreate != nil {
		if err := r.PrepareCreate(c, doc); err != nil {
			return err
		}
	}

	ctx := c.Request().Context()
	var (
		created *T
		err     error
	)
	if r.CreateFn != nil {
		created, err = r.CreateFn(ctx, doc)
	} else {
		created, err = r.store.Insert(ctx, doc)
	}
	if err != nil {
		return err
	}
	return respondOne(c, http.StatusCreated, created)
}

// GetOne handles GET /:id.
func (r *Resource[T]) GetOne(c echo.Context) error {
	doc, err := r.store.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if r.ExpandOne != nil {
		if err := r.ExpandOne(c, doc); err != nil {
			return err
		}
	}
	return respondOne(c, http.StatusOK, doc)
}

// GetAll handles GET /. The query string drives filtering, sorting,
// projection, and pagination; an empty page is a 200 with results: 0.
func (r *Resource[T]) GetAll(c echo.Context) error {
	var scope map[string]any
	if r.Scope != nil {
		scope = r.Scope(c)
	}
	docs, err := r.store.FindAll(c.Request().Context(), scope, c.QueryParams())
	if err != nil {
		return err
	}
	return respondList(c, docs, len(docs))
}

// Update handles PATCH /:id. Only body fields present are written; the rest
// of the document is untouched.
func (r *Resource[T]) Update(c echo.Context) error {
	patch := map[string]any{}
	if err := c.Bind(&patch); err != nil {
		return err
	}
	patch = filterPatch(patch, r.AllowedPatch)
	if len(patch) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no updatable fields in request body")
	}

	ctx := c.Request().Context()
	var (
		updated *T
		err     error
	)
	if r.UpdateFn != nil {
		updated, err = r.UpdateFn(ctx, c.Param("id"), patch)
	} else {
		updated, err = r.store.UpdateByID(ctx, c.Param("id"), patch)
	}
	if err != nil {
		return err
	}
	return respondOne(c, http.StatusOK, updated)
}

// Delete handles DELETE /:id. 204 with no body on success.
func (r *Resource[T]) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	if r.DeleteFn != nil {
		err = r.DeleteFn(ctx, c.Param("id"))
	} else {
		err = r.store.DeleteByID(ctx, c.Param("id"))
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// filterPatch drops keys outside the allow-list and normalizes JSON numbers:
// whole floats become int64 so integer fields (prices, counts) round-trip
// through a $set without changing type.
func filterPatch(patch map[string]any, allowed []string) map[string]any {
	allow := func(string) bool { return true }
	if len(allowed) > 0 {
		set := make(map[string]bool, len(allowed))
		for _, f := range allowed {
			set[f] = true
		}
		allow = func(k string) bool { return set[k] }
	}

	out := make(map[string]any, len(patch))
	for k, v := range patch {
		if !allow(k) {
			continue
		}
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			out[k] = int64(f)
			continue
		}
		out[k] = v
	}
	return out
}
