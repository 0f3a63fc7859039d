// Package cache stores per-step snapshots of element data so outputs can be
// generated, or a run replayed, without recomputing it.
package cache

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/signalsfoundry/spill-simulator/elements"
)

var (
	// ErrDisabled is returned by LoadTimestep when caching is turned off.
	ErrDisabled = errors.New("element cache disabled")
	// ErrNotCached is returned when no snapshot exists for a step.
	ErrNotCached = errors.New("step not cached")
)

// Snapshot is the element state of every realization at one step, certain
// container first. Its arrays are private copies; callers must not mutate
// them.
type Snapshot struct {
	Step       int
	Containers []*elements.ContainerSnapshot
}

// Certain returns the certain realization.
func (s *Snapshot) Certain() *elements.ContainerSnapshot { return s.Containers[0] }

// ElementCache keeps snapshots keyed by step number until Rewind. Entries
// are never evicted on their own.
type ElementCache struct {
	mu      sync.RWMutex
	steps   map[int]*Snapshot
	enabled bool

	hits    int64
	misses  int64
	rewinds int64
}

// NewElementCache builds a cache.
func NewElementCache(enabled bool) *ElementCache {
	return &ElementCache{steps: make(map[int]*Snapshot), enabled: enabled}
}

func (c *ElementCache) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled turns caching on or off. Turning it off drops stored entries.
func (c *ElementCache) SetEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = on
	if !on {
		c.steps = make(map[int]*Snapshot)
	}
}

// SaveTimestep snapshots pair under step. It is a no-op when disabled.
func (c *ElementCache) SaveTimestep(step int, pair *elements.SpillContainerPair) {
	if c == nil || pair == nil {
		return
	}
	c.mu.RLock()
	enabled := c.enabled
	c.mu.RUnlock()
	if !enabled {
		return
	}
	snap := &Snapshot{Step: step, Containers: pair.Snapshot()}
	c.mu.Lock()
	c.steps[step] = snap
	c.mu.Unlock()
}

// LoadTimestep returns the snapshot saved for step.
func (c *ElementCache) LoadTimestep(step int) (*Snapshot, error) {
	if c == nil {
		return nil, ErrDisabled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return nil, ErrDisabled
	}
	snap, ok := c.steps[step]
	if !ok {
		c.misses++
		return nil, fmt.Errorf("%w: %d", ErrNotCached, step)
	}
	c.hits++
	return &Snapshot{Step: snap.Step, Containers: slices.Clone(snap.Containers)}, nil
}

// Rewind drops every entry.
func (c *ElementCache) Rewind() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.steps = make(map[int]*Snapshot)
	c.rewinds++
	c.mu.Unlock()
}

// Len is the number of cached steps.
func (c *ElementCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.steps)
}

// Steps returns the cached step numbers in order.
func (c *ElementCache) Steps() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.steps))
}

func (c *ElementCache) Stats() (hits, misses, rewinds int64) {
	if c == nil {
		return 0, 0, 0
	}
	c.mu.RLock()
	hits, misses, rewinds = c.hits, c.misses, c.rewinds
	c.mu.RUnlock()
	return
}
