package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
)

// Kinds of objects kept in the store.
const (
	KindAccount     = "account"
	KindCredential  = "credential"
	KindProduct     = "product"
	KindListing     = "listing"
	KindOrder       = "order"
	KindPublishJob  = "publish_job"
	KindIdempotency = "idempotency"
)

// Store is a key-value object store partitioned by kind.
// Get returns domainErrors.ErrNotFound for a missing object; Delete of a missing object is not an error.
type Store interface {
	Put(ctx context.Context, kind, id string, data []byte) error
	Get(ctx context.Context, kind, id string) ([]byte, error)
	List(ctx context.Context, kind string) ([][]byte, error)
	Delete(ctx context.Context, kind, id string) error
}

// Collection is a typed view over one kind in a Store.
type Collection[T any] struct {
	store Store
	kind  string
	idOf  func(*T) string
}

// NewCollection creates a collection; idOf extracts the object's key.
func NewCollection[T any](s Store, kind string, idOf func(*T) string) *Collection[T] {
	return &Collection[T]{store: s, kind: kind, idOf: idOf}
}

// Save inserts or replaces v.
func (c *Collection[T]) Save(ctx context.Context, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.kind, err)
	}
	if err := c.store.Put(ctx, c.kind, c.idOf(v), data); err != nil {
		return fmt.Errorf("save %s: %w", c.kind, err)
	}
	return nil
}

// Update replaces v. The object store has upsert semantics, so it is Save.
func (c *Collection[T]) Update(ctx context.Context, v *T) error {
	return c.Save(ctx, v)
}

// Get returns the object stored under id, or nil, nil when absent.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := c.store.Get(ctx, c.kind, id)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", c.kind, id, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s %s: %w", c.kind, id, err)
	}
	return &v, nil
}

// Fetch returns every object of this kind in no particular order.
func (c *Collection[T]) Fetch(ctx context.Context) ([]*T, error) {
	raw, err := c.store.List(ctx, c.kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.kind, err)
	}

	out := make([]*T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", c.kind, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// Delete removes the object stored under id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, c.kind, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", c.kind, id, err)
	}
	return nil
}

// Transactor is implemented by stores that can group writes atomically.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WithinTransaction runs fn inside a transaction when s supports one and
// directly otherwise.
func WithinTransaction(ctx context.Context, s Store, fn func(ctx context.Context) error) error {
	if tx, ok := s.(Transactor); ok {
		return tx.WithTransaction(ctx, fn)
	}
	return fn(ctx)
}
