// Package viewcache keeps a client-side list of server-confirmed records in
// display order, applying each record at most once.
package viewcache

import "sync"

// Cache is an ordered list of items keyed by id. Safe for concurrent use.
type Cache[T any] struct {
	mu    sync.Mutex
	idOf  func(T) int64
	items []T
}

func New[T any](idOf func(T) int64) *Cache[T] {
	return &Cache[T]{idOf: idOf}
}

// Reset replaces the contents, e.g. after a fresh list call.
func (c *Cache[T]) Reset(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items[:0:0], items...)
}

// Prepend puts a newly confirmed item first. An item already present is
// replaced in place instead.
func (c *Cache[T]) Prepend(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replaceLocked(item) {
		return
	}
	c.items = append([]T{item}, c.items...)
}

// Append puts a newly confirmed item last. An item already present is
// replaced in place instead.
func (c *Cache[T]) Append(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replaceLocked(item) {
		return
	}
	c.items = append(c.items, item)
}

// Replace swaps the item with the same id and reports whether one existed.
func (c *Cache[T]) Replace(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaceLocked(item)
}

// Remove drops the item with id and reports whether it was present.
func (c *Cache[T]) Remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if c.idOf(it) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a snapshot in display order.
func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[T]) replaceLocked(item T) bool {
	id := c.idOf(item)
	for i, it := range c.items {
		if c.idOf(it) == id {
			c.items[i] = item
			return true
		}
	}
	return false
}
