// Package collection provides the insertion-ordered, uniquely keyed
// containers that hold a model's movers, weatherers, environment objects and
// outputters.
//
// Every mutation is reported synchronously to subscribers after the
// collection's own state is consistent, so a subscriber may safely read (or
// mutate other collections) from inside its callback.
package collection

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrDuplicate is returned when an item with the same ID is already held.
	ErrDuplicate = errors.New("item already in collection")
	// ErrNotFound is returned when an ID is not held by the collection.
	ErrNotFound = errors.New("item not in collection")
)

// Item is anything with a stable identity.
type Item interface {
	ID() string
}

// EventType indicates what kind of change happened in a collection.
type EventType int

const (
	EventAdd EventType = iota
	EventReplace
	EventRemove
	EventReorder
)

func (e EventType) String() string {
	switch e {
	case EventAdd:
		return "add"
	case EventReplace:
		return "replace"
	case EventRemove:
		return "remove"
	case EventReorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when the collection changes. Previous is
// only set for EventReplace.
type Event[T Item] struct {
	Type     EventType
	Item     T
	Previous T
	Index    int
}

type subscription[T Item] struct {
	id    int
	fn    func(Event[T])
	types []EventType
}

func (s subscription[T]) wants(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// Ordered holds items in insertion order, keyed by ID.
type Ordered[T Item] struct {
	mu sync.RWMutex

	items []T
	index map[string]int

	subs   []subscription[T]
	nextID int
}

// NewOrdered constructs an empty collection.
func NewOrdered[T Item]() *Ordered[T] {
	return &Ordered[T]{index: make(map[string]int)}
}

// Add appends items in order. It stops at the first item whose ID is
// already present and returns ErrDuplicate; items before it stay added.
func (c *Ordered[T]) Add(items ...T) error {
	for _, item := range items {
		c.mu.Lock()
		id := item.ID()
		if _, exists := c.index[id]; exists {
			c.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrDuplicate, id)
		}
		c.items = append(c.items, item)
		idx := len(c.items) - 1
		c.index[id] = idx
		subs := c.snapshotSubs()
		c.mu.Unlock()

		notify(subs, Event[T]{Type: EventAdd, Item: item, Index: idx})
	}
	return nil
}

// Replace swaps the item stored under id for item, keeping its position.
func (c *Ordered[T]) Replace(id string, item T) error {
	c.mu.Lock()
	idx, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	newID := item.ID()
	if other, exists := c.index[newID]; exists && other != idx {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicate, newID)
	}
	prev := c.items[idx]
	c.items[idx] = item
	delete(c.index, id)
	c.index[newID] = idx
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event[T]{Type: EventReplace, Item: item, Previous: prev, Index: idx})
	return nil
}

// Remove deletes the item stored under id.
func (c *Ordered[T]) Remove(id string) error {
	c.mu.Lock()
	idx, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	item := c.items[idx]
	c.items = slices.Delete(c.items, idx, idx+1)
	c.reindexLocked()
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event[T]{Type: EventRemove, Item: item, Index: idx})
	return nil
}

// Get returns the item stored under id.
func (c *Ordered[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[idx], true
}

// Contains reports whether id is held.
func (c *Ordered[T]) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

// Index returns the position of id, or -1.
func (c *Ordered[T]) Index(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx, ok := c.index[id]; ok {
		return idx
	}
	return -1
}

// Len returns the number of items.
func (c *Ordered[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Values returns a snapshot slice of the items in order.
func (c *Ordered[T]) Values() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Clear drops every item without notifying subscribers.
func (c *Ordered[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.index = make(map[string]int)
}

// Remake rebuilds the ID index from the stored order.
func (c *Ordered[T]) Remake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reindexLocked()
}

// SortStable orders the items by cmp. The collection is only rewritten, and
// a single EventReorder emitted, when the order actually changes.
func (c *Ordered[T]) SortStable(cmp func(a, b T) int) bool {
	c.mu.Lock()
	sorted := slices.Clone(c.items)
	slices.SortStableFunc(sorted, cmp)
	changed := false
	for i := range sorted {
		if sorted[i].ID() != c.items[i].ID() {
			changed = true
			break
		}
	}
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.items = sorted
	c.reindexLocked()
	subs := c.snapshotSubs()
	c.mu.Unlock()

	var zero T
	notify(subs, Event[T]{Type: EventReorder, Item: zero, Index: -1})
	return true
}

// Subscribe registers fn for the given event types (all types when none are
// given). It returns an unsubscribe function.
func (c *Ordered[T]) Subscribe(fn func(Event[T]), types ...EventType) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription[T]{id: id, fn: fn, types: types})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s subscription[T]) bool { return s.id == id })
	}
}

func (c *Ordered[T]) reindexLocked() {
	c.index = make(map[string]int, len(c.items))
	for i, item := range c.items {
		c.index[item.ID()] = i
	}
}

func (c *Ordered[T]) snapshotSubs() []subscription[T] {
	return slices.Clone(c.subs)
}

// notify runs outside the lock so subscribers can call back into the
// collection.
func notify[T Item](subs []subscription[T], ev Event[T]) {
	for _, s := range subs {
		if s.wants(ev.Type) {
			s.fn(ev)
		}
	}
}
