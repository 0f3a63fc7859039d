package elements

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/spill-simulator/model"
)

// ErrUnknownArray is returned when a named array was not allocated for the
// run.
var ErrUnknownArray = errors.New("unknown element array")

// SpillContainer holds the element population of one realization. Elements
// at indices [0, NumReleased()) are live; removed elements are excised from
// every array in lockstep.
type SpillContainer struct {
	uncertain bool

	spills   []*Spill
	released []int

	types  []ArrayType
	arrays map[string]*Array

	numComponents int
	nextID        int64

	// MassBalance is the run's mass accounting, keyed by fate name. Weatherers
	// add their keys when a run is prepared.
	MassBalance map[string]float64

	timeStamp    time.Time
	hasTimeStamp bool

	fateView map[fateKey][]int
}

type fateKey struct {
	substance *model.Substance
	fate      model.FateStatus
}

// NewSpillContainer builds an empty container.
func NewSpillContainer(uncertain bool) *SpillContainer {
	sc := &SpillContainer{uncertain: uncertain}
	sc.Rewind()
	return sc
}

// Uncertain reports whether this is the uncertain realization.
func (sc *SpillContainer) Uncertain() bool { return sc.uncertain }

// AddSpill appends a spill. Its position is its spill_num.
func (sc *SpillContainer) AddSpill(s *Spill) {
	sc.spills = append(sc.spills, s)
	sc.released = append(sc.released, 0)
}

// RemoveSpill drops the spill with the given ID.
func (sc *SpillContainer) RemoveSpill(id string) bool {
	idx := slices.IndexFunc(sc.spills, func(s *Spill) bool { return s.ID() == id })
	if idx < 0 {
		return false
	}
	sc.spills = slices.Delete(sc.spills, idx, idx+1)
	sc.released = slices.Delete(sc.released, idx, idx+1)
	return true
}

// Spills returns the owned spills in spill_num order.
func (sc *SpillContainer) Spills() []*Spill { return slices.Clone(sc.spills) }

// Substances returns the distinct substances of the owned spills in order of
// first use. Spills without a substance are skipped.
func (sc *SpillContainer) Substances() []*model.Substance {
	var out []*model.Substance
	for _, s := range sc.spills {
		if s.Substance != nil && !slices.Contains(out, s.Substance) {
			out = append(out, s.Substance)
		}
	}
	return out
}

// PrepareForModelRun allocates every default array plus the requested ones,
// empty.
func (sc *SpillContainer) PrepareForModelRun(types []ArrayType) {
	sc.numComponents = 1
	for _, s := range sc.spills {
		sc.numComponents = max(sc.numComponents, s.Substance.NumComponents())
	}

	sc.types = nil
	sc.arrays = make(map[string]*Array)
	for _, t := range slices.Concat(DefaultArrayTypes, types) {
		if _, ok := sc.arrays[t.Name]; ok {
			continue
		}
		width := t.Width
		if t.PerComponent() {
			width = sc.numComponents
		}
		sc.types = append(sc.types, t)
		sc.arrays[t.Name] = newArray(t, width)
	}
	for i := range sc.released {
		sc.released[i] = 0
	}
	sc.nextID = 0
	sc.fateView = nil
}

// Rewind discards every element and the release counters.
func (sc *SpillContainer) Rewind() {
	sc.types = slices.Clone(DefaultArrayTypes)
	sc.arrays = make(map[string]*Array, len(DefaultArrayTypes))
	for _, t := range DefaultArrayTypes {
		sc.arrays[t.Name] = newArray(t, t.Width)
	}
	for i := range sc.released {
		sc.released[i] = 0
	}
	sc.numComponents = 1
	sc.nextID = 0
	sc.MassBalance = make(map[string]float64)
	sc.fateView = nil
	sc.hasTimeStamp = false
}

// ArrayTypes returns the allocated array types.
func (sc *SpillContainer) ArrayTypes() []ArrayType { return slices.Clone(sc.types) }

// ArrayNames returns the allocated array names, sorted.
func (sc *SpillContainer) ArrayNames() []string {
	return slices.Sorted(maps.Keys(sc.arrays))
}

// Has reports whether the named array is allocated.
func (sc *SpillContainer) Has(name string) bool {
	_, ok := sc.arrays[name]
	return ok
}

// Array returns the named array, or nil when it is not allocated.
func (sc *SpillContainer) Array(name string) *Array { return sc.arrays[name] }

// Lookup is Array with an error for unknown names.
func (sc *SpillContainer) Lookup(name string) (*Array, error) {
	a, ok := sc.arrays[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArray, name)
	}
	return a, nil
}

// NumReleased is the number of live elements.
func (sc *SpillContainer) NumReleased() int { return sc.arrays[ArrayStatusCodes].Len() }

// NumComponents is the width of per-component arrays.
func (sc *SpillContainer) NumComponents() int { return sc.numComponents }

// ReleasedBySpill returns how many elements spill i has released so far.
func (sc *SpillContainer) ReleasedBySpill(i int) int { return sc.released[i] }

func (sc *SpillContainer) Status(i int) model.StatusCode {
	return model.StatusCode(sc.arrays[ArrayStatusCodes].Int(i))
}

func (sc *SpillContainer) SetStatus(i int, s model.StatusCode) {
	sc.arrays[ArrayStatusCodes].SetInt(i, int64(s))
}

// Fate returns element i's fate status, or zero when fate is not tracked.
func (sc *SpillContainer) Fate(i int) model.FateStatus {
	a, ok := sc.arrays[ArrayFateStatus]
	if !ok {
		return 0
	}
	return model.FateStatus(a.Int(i))
}

func (sc *SpillContainer) SetFate(i int, f model.FateStatus) {
	if a, ok := sc.arrays[ArrayFateStatus]; ok {
		a.SetInt(i, int64(f))
	}
}

// SpillOf returns the spill that released element i.
func (sc *SpillContainer) SpillOf(i int) *Spill {
	return sc.spills[sc.arrays[ArraySpillNum].Int(i)]
}

// SubstanceOf returns the substance of element i, possibly nil.
func (sc *SpillContainer) SubstanceOf(i int) *model.Substance {
	return sc.SpillOf(i).Substance
}

// CurrentTimeStamp returns the model time the container's data is valid
// for, if set.
func (sc *SpillContainer) CurrentTimeStamp() (time.Time, bool) {
	return sc.timeStamp, sc.hasTimeStamp
}

func (sc *SpillContainer) SetCurrentTimeStamp(t time.Time) {
	sc.timeStamp, sc.hasTimeStamp = t, true
}

// ClearCurrentTimeStamp marks the data as not valid for any model time.
func (sc *SpillContainer) ClearCurrentTimeStamp() { sc.hasTimeStamp = false }

// ReleaseElements appends the elements every spill owes for the window
// [modelTime, modelTime+timeStep) and returns how many were added.
func (sc *SpillContainer) ReleaseElements(timeStep time.Duration, modelTime time.Time) int {
	total := 0
	for i, s := range sc.spills {
		n := s.numToRelease(sc.released[i], modelTime, timeStep)
		if n == 0 {
			continue
		}
		start := sc.NumReleased()
		for _, a := range sc.arrays {
			a.grow(n)
		}
		sc.initializeRows(i, s, start, n)
		sc.released[i] += n
		total += n
	}
	if total > 0 {
		sc.fateView = nil
	}
	return total
}

func (sc *SpillContainer) initializeRows(spillNum int, s *Spill, start, n int) {
	pos := sc.arrays[ArrayPositions]
	next := sc.arrays[ArrayNextPositions]
	last := sc.arrays[ArrayLastWaterPositions]
	mass := s.ElementMass()
	fractions := s.Substance.Fractions()

	for k := range n {
		i := start + k
		p := s.positionFor(sc.released[spillNum] + k)
		for _, a := range []*Array{pos, next, last} {
			row := a.Row(i)
			row[0], row[1], row[2] = p.Lon, p.Lat, p.Z
		}
		sc.SetStatus(i, model.StatusInWater)
		sc.arrays[ArraySpillNum].SetInt(i, int64(spillNum))
		sc.arrays[ArrayID].SetInt(i, sc.nextID)
		sc.nextID++
		sc.arrays[ArrayMass].SetFloat(i, mass)
		sc.arrays[ArrayAge].SetFloat(i, 0)

		if mc, ok := sc.arrays[ArrayMassComponents]; ok {
			row := mc.Row(i)
			clear(row)
			for j, f := range fractions {
				row[j] = f * mass
			}
		}
		if a, ok := sc.arrays[ArrayInitMass]; ok {
			a.SetFloat(i, mass)
		}
		if a, ok := sc.arrays[ArrayWindages]; ok {
			a.SetFloat(i, s.Windage)
		}
		if p.Z == 0 {
			sc.SetFate(i, model.FateSurfaceWeather)
		} else {
			sc.SetFate(i, model.FateSubsurfWeather)
		}
	}
}

// ModelStepIsDone removes every element flagged to_be_removed.
func (sc *SpillContainer) ModelStepIsDone() int {
	n := sc.NumReleased()
	keep := make([]bool, n)
	removed := 0
	for i := range n {
		keep[i] = sc.Status(i) != model.StatusToBeRemoved
		if !keep[i] {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	for _, a := range sc.arrays {
		a.compact(keep)
	}
	sc.fateView = nil
	return removed
}

// AgeElements adds timeStep to every element's age.
func (sc *SpillContainer) AgeElements(timeStep time.Duration) {
	floats.AddConst(timeStep.Seconds(), sc.arrays[ArrayAge].Floats())
}

// TotalMass is the summed mass of all live elements.
func (sc *SpillContainer) TotalMass() float64 {
	return floats.Sum(sc.arrays[ArrayMass].Floats())
}

// ResetFateView rebuilds the per-substance fate index used by weatherers
// during a step.
func (sc *SpillContainer) ResetFateView() {
	sc.fateView = make(map[fateKey][]int)
	for i := range sc.NumReleased() {
		if sc.Status(i) != model.StatusInWater {
			continue
		}
		sub := sc.SubstanceOf(i)
		fate := sc.Fate(i)
		for _, f := range []model.FateStatus{
			model.FateSurfaceWeather, model.FateSubsurfWeather, model.FateNonWeather,
			model.FateSkim, model.FateBurn, model.FateDisperse,
		} {
			if fate.Has(f) {
				k := fateKey{substance: sub, fate: f}
				sc.fateView[k] = append(sc.fateView[k], i)
			}
		}
	}
}

// FateIndices returns the in-water elements of sub carrying fate f, as of
// the last ResetFateView.
func (sc *SpillContainer) FateIndices(sub *model.Substance, f model.FateStatus) []int {
	if sc.fateView == nil {
		sc.ResetFateView()
	}
	return sc.fateView[fateKey{substance: sub, fate: f}]
}

// Snapshot deep-copies the container's arrays and mass balance.
func (sc *SpillContainer) Snapshot() *ContainerSnapshot {
	snap := &ContainerSnapshot{
		Uncertain:   sc.uncertain,
		Arrays:      make(map[string]*Array, len(sc.arrays)),
		MassBalance: maps.Clone(sc.MassBalance),
		NumReleased: sc.NumReleased(),
	}
	if sc.hasTimeStamp {
		snap.TimeStamp = sc.timeStamp
	}
	for name, a := range sc.arrays {
		snap.Arrays[name] = a.clone()
	}
	return snap
}

// ContainerSnapshot is a frozen copy of one container at a step.
type ContainerSnapshot struct {
	Uncertain   bool
	TimeStamp   time.Time
	NumReleased int
	Arrays      map[string]*Array
	MassBalance map[string]float64
}

// Array returns the named array, or nil.
func (s *ContainerSnapshot) Array(name string) *Array { return s.Arrays[name] }
