package elements

import (
	"fmt"
	"slices"
)

// SpillContainerPair holds the certain realization and, when uncertainty is
// on, a parallel uncertain realization built from copies of the same
// spills.
type SpillContainerPair struct {
	certain   *SpillContainer
	uncertain *SpillContainer
}

// NewSpillContainerPair builds an empty pair.
func NewSpillContainerPair(uncertain bool) *SpillContainerPair {
	p := &SpillContainerPair{certain: NewSpillContainer(false)}
	p.SetUncertain(uncertain)
	return p
}

// Certain returns the certain container.
func (p *SpillContainerPair) Certain() *SpillContainer { return p.certain }

// Uncertain returns the uncertain container, or nil when uncertainty is off.
func (p *SpillContainerPair) Uncertain() *SpillContainer { return p.uncertain }

// IsUncertain reports whether the uncertain realization is on.
func (p *SpillContainerPair) IsUncertain() bool { return p.uncertain != nil }

// SetUncertain turns the uncertain realization on or off. Turning it on
// copies every current spill into a fresh uncertain container.
func (p *SpillContainerPair) SetUncertain(on bool) {
	switch {
	case on && p.uncertain == nil:
		p.uncertain = NewSpillContainer(true)
		for _, s := range p.certain.spills {
			p.uncertain.AddSpill(s.Copy())
		}
	case !on:
		p.uncertain = nil
	}
}

// Items returns the certain container followed by the uncertain one when
// present.
func (p *SpillContainerPair) Items() []*SpillContainer {
	if p.uncertain == nil {
		return []*SpillContainer{p.certain}
	}
	return []*SpillContainer{p.certain, p.uncertain}
}

// Add registers spills with both realizations.
func (p *SpillContainerPair) Add(spills ...*Spill) error {
	for _, s := range spills {
		if p.Get(s.ID()) != nil {
			return fmt.Errorf("%w: spill %q already added", ErrInvalidSpill, s.ID())
		}
		p.certain.AddSpill(s)
		if p.uncertain != nil {
			p.uncertain.AddSpill(s.Copy())
		}
	}
	return nil
}

// Remove drops a spill from both realizations.
func (p *SpillContainerPair) Remove(id string) bool {
	ok := p.certain.RemoveSpill(id)
	if p.uncertain != nil {
		p.uncertain.RemoveSpill(id)
	}
	return ok
}

// Get returns the certain spill with the given ID, or nil.
func (p *SpillContainerPair) Get(id string) *Spill {
	idx := slices.IndexFunc(p.certain.spills, func(s *Spill) bool { return s.ID() == id })
	if idx < 0 {
		return nil
	}
	return p.certain.spills[idx]
}

// Spills returns the certain spills.
func (p *SpillContainerPair) Spills() []*Spill { return p.certain.Spills() }

// Len is the number of spills.
func (p *SpillContainerPair) Len() int { return len(p.certain.spills) }

// Rewind discards the elements of both realizations.
func (p *SpillContainerPair) Rewind() {
	for _, sc := range p.Items() {
		sc.Rewind()
	}
}

// PrepareForModelRun allocates arrays in both realizations.
func (p *SpillContainerPair) PrepareForModelRun(types []ArrayType) {
	for _, sc := range p.Items() {
		sc.PrepareForModelRun(types)
	}
}

// Snapshot deep-copies every container, certain first.
func (p *SpillContainerPair) Snapshot() []*ContainerSnapshot {
	items := p.Items()
	out := make([]*ContainerSnapshot, len(items))
	for i, sc := range items {
		out[i] = sc.Snapshot()
	}
	return out
}
