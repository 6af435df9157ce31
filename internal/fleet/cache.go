package fleet

import (
	"context"
	"sort"
)

// cache is a lazily loaded, ordered copy of one collection. Callers hold the
// workspace lock. Items are cloned on the way in and out, so nothing handed
// to a caller aliases the cached rows.
type cache[T any] struct {
	loaded bool
	items  []T
	key    func(*T) string
	load   func(context.Context) ([]T, error)
	less   func(a, b *T) bool
	clone  func(T) T
}

func (c *cache[T]) ensure(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	c.items, c.loaded = items, true
	return nil
}

func (c *cache[T]) list() []T {
	out := make([]T, len(c.items))
	for i := range c.items {
		out[i] = c.clone(c.items[i])
	}
	return out
}

func (c *cache[T]) get(id string) (T, bool) {
	for i := range c.items {
		if c.key(&c.items[i]) == id {
			return c.clone(c.items[i]), true
		}
	}
	var zero T
	return zero, false
}

// put replaces the item with the same key or adds it.
func (c *cache[T]) put(item T) {
	item = c.clone(item)
	id := c.key(&item)
	replaced := false
	for i := range c.items {
		if c.key(&c.items[i]) == id {
			c.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		c.items = append(c.items, item)
	}
	if c.less != nil {
		sort.SliceStable(c.items, func(i, j int) bool { return c.less(&c.items[i], &c.items[j]) })
	}
}

func (c *cache[T]) drop(id string) {
	out := c.items[:0:0]
	for i := range c.items {
		if c.key(&c.items[i]) != id {
			out = append(out, c.items[i])
		}
	}
	c.items = out
}

// reset forces the next access to reload from the store.
func (c *cache[T]) reset() {
	c.loaded, c.items = false, nil
}
