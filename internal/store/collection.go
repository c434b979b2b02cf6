package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Collection is a capped, ordered list of T persisted as one JSON array.
// Items are identified by idOf. Writes are serialized by a mutex; the last
// write wins.
type Collection[T any] struct {
	backend Backend
	key     string
	max     int
	idOf    func(T) string

	mu sync.Mutex
}

// NewCollection creates a collection stored under key holding at most max
// items. max <= 0 means unbounded.
func NewCollection[T any](b Backend, key string, max int, idOf func(T) string) *Collection[T] {
	return &Collection[T]{backend: b, key: key, max: max, idOf: idOf}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string { return c.key }

// Max returns the cap.
func (c *Collection[T]) Max() int { return c.max }

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	data, err := c.backend.Load(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return items, nil
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	return c.backend.Save(ctx, c.key, data)
}

// List returns every item, oldest first.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get returns the item with id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if c.idOf(it) == id {
			return it, nil
		}
	}
	return zero, fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
}

// Put inserts item, or replaces it in place when its id already exists.
// Inserting past the cap evicts the oldest items.
func (c *Collection[T]) Put(ctx context.Context, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	id := c.idOf(item)
	for i := range items {
		if c.idOf(items[i]) == id {
			items[i] = item
			return c.save(ctx, items)
		}
	}
	items = append(items, item)
	if c.max > 0 && len(items) > c.max {
		items = items[len(items)-c.max:]
	}
	return c.save(ctx, items)
}

// Update loads the item with id, applies fn, and writes the result back in
// place. An error from fn aborts the write.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for i := range items {
		if c.idOf(items[i]) != id {
			continue
		}
		if err := fn(&items[i]); err != nil {
			return zero, err
		}
		if err := c.save(ctx, items); err != nil {
			return zero, err
		}
		return items[i], nil
	}
	return zero, fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
}

// Delete removes the item with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		if c.idOf(items[i]) == id {
			items = append(items[:i], items[i+1:]...)
			return c.save(ctx, items)
		}
	}
	return fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
}

// Clear removes every item.
func (c *Collection[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend.Delete(ctx, c.key)
}

// Len returns the number of stored items.
func (c *Collection[T]) Len(ctx context.Context) (int, error) {
	items, err := c.List(ctx)
	return len(items), err
}
