package vkutil

import "github.com/cockroachdb/errors"

// Cycle owns a fixed ring of frame-scoped resources and tracks which slot is
// designated current. Rotation moves only the designation: elements never
// change slots, so device handles stay pinned to their slot for the whole
// lifetime of the ring.
type Cycle[T any] struct {
	items   []T
	current int
}

// NewCycle builds a cycle over the given items. The first item starts as
// current. At least one item is required.
func NewCycle[T any](items ...T) *Cycle[T] {
	if len(items) == 0 {
		panic("vkutil: NewCycle requires at least one item")
	}
	return &Cycle[T]{items: items}
}

// NewCycleFunc builds an n-slot cycle by invoking build once per slot. On
// error the partial result is discarded and the error returned; build is
// responsible for cleaning up the item it failed on.
func NewCycleFunc[T any](n int, build func(slot int) (T, error)) (*Cycle[T], error) {
	if n < 1 {
		return nil, errors.Newf("cycle size must be positive, got %d", n)
	}

	items := make([]T, n)
	for i := 0; i < n; i++ {
		item, err := build(i)
		if err != nil {
			return nil, errors.Wrapf(err, "build cycle slot %d", i)
		}
		items[i] = item
	}

	return &Cycle[T]{items: items}, nil
}

// Len returns the number of slots.
func (c *Cycle[T]) Len() int {
	return len(c.items)
}

// Slot returns the index of the current slot.
func (c *Cycle[T]) Slot() int {
	return c.current
}

// Current returns the item designated for the frame being prepared.
func (c *Cycle[T]) Current() T {
	return c.items[c.current]
}

// Previous returns the oldest item, the one that was current Len()-1
// rotations ago. With a single slot it is the current item.
func (c *Cycle[T]) Previous() T {
	return c.items[(c.current+1)%len(c.items)]
}

// Rotate advances the current designation by one slot. After Len() rotations
// every designation is back where it started.
func (c *Cycle[T]) Rotate() {
	c.current = (c.current + 1) % len(c.items)
}

// All returns the backing slice in storage order, independent of the current
// designation. Callers may replace entries in place, for example when every
// slot must be rebuilt after a swapchain extent change.
func (c *Cycle[T]) All() []T {
	return c.items
}
