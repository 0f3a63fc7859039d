package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
)

func releasedPair(t *testing.T) *elements.SpillContainerPair {
	t.Helper()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := elements.NewSpillContainerPair(false)
	if err := p.Add(elements.NewSpill("s", t0, 10, 2, model.Position{Lon: 5}, nil)); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	p.PrepareForModelRun(nil)
	p.Certain().ReleaseElements(time.Minute, t0)
	return p
}

func TestSaveLoadIsIndependentCopy(t *testing.T) {
	c := NewElementCache(true)
	p := releasedPair(t)
	c.SaveTimestep(0, p)

	p.Certain().Array(elements.ArrayPositions).Row(0)[0] = 99

	snap, err := c.LoadTimestep(0)
	if err != nil {
		t.Fatalf("LoadTimestep error: %v", err)
	}
	if got := snap.Certain().Array(elements.ArrayPositions).Row(0)[0]; got != 5 {
		t.Fatalf("cached lon = %v, want 5", got)
	}
	if snap.Certain().NumReleased != 2 {
		t.Fatalf("NumReleased = %d, want 2", snap.Certain().NumReleased)
	}
}

func TestLoadMissingStep(t *testing.T) {
	c := NewElementCache(true)
	if _, err := c.LoadTimestep(3); !errors.Is(err, ErrNotCached) {
		t.Fatalf("LoadTimestep error = %v, want ErrNotCached", err)
	}
	if _, misses, _ := c.Stats(); misses != 1 {
		t.Fatalf("misses = %d, want 1", misses)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c := NewElementCache(false)
	c.SaveTimestep(0, releasedPair(t))
	if c.Len() != 0 {
		t.Fatalf("disabled cache stored %d entries", c.Len())
	}
	if _, err := c.LoadTimestep(0); !errors.Is(err, ErrDisabled) {
		t.Fatalf("LoadTimestep error = %v, want ErrDisabled", err)
	}
}

func TestRewindClearsEntries(t *testing.T) {
	c := NewElementCache(true)
	p := releasedPair(t)
	c.SaveTimestep(0, p)
	c.SaveTimestep(1, p)
	if got := c.Steps(); len(got) != 2 || got[1] != 1 {
		t.Fatalf("Steps = %v, want [0 1]", got)
	}
	c.Rewind()
	c.Rewind()
	if c.Len() != 0 {
		t.Fatalf("Len after rewind = %d, want 0", c.Len())
	}
	if _, _, rewinds := c.Stats(); rewinds != 2 {
		t.Fatalf("rewinds = %d, want 2", rewinds)
	}
}
