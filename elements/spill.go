package elements

import (
	"errors"
	"math"
	"time"

	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

// ErrInvalidSpill marks a spill definition that cannot release elements.
var ErrInvalidSpill = errors.New("invalid spill")

// DefaultWindage is the fraction of the wind speed a surface element drifts
// with when the spill does not set one.
const DefaultWindage = 0.03

// Spill is a release event. It is never mutated during a run; release
// bookkeeping lives in the container.
type Spill struct {
	model.Object

	ReleaseTime    time.Time
	EndReleaseTime time.Time // zero for an instantaneous release
	Amount         float64   // kg
	NumElements    int
	StartPosition  model.Position
	EndPosition    *model.Position // nil for a point release
	Substance      *model.Substance
	Windage        float64

	water  *environment.Water
	source *Spill // set on uncertain copies
}

// NewSpill builds an instantaneous point release.
func NewSpill(name string, release time.Time, amount float64, numElements int, pos model.Position, sub *model.Substance) *Spill {
	return &Spill{
		Object:        model.NewObject(name),
		ReleaseTime:   release,
		Amount:        amount,
		NumElements:   numElements,
		StartPosition: pos,
		Substance:     sub,
		Windage:       DefaultWindage,
	}
}

func (s *Spill) Water() *environment.Water         { return s.water }
func (s *Spill) SetWater(water *environment.Water) { s.water = water }

// EndTime is the time the last element is released.
func (s *Spill) EndTime() time.Time {
	if s.EndReleaseTime.IsZero() || s.EndReleaseTime.Before(s.ReleaseTime) {
		return s.ReleaseTime
	}
	return s.EndReleaseTime
}

// ElementMass is the mass carried by each released element.
func (s *Spill) ElementMass() float64 {
	if s.NumElements <= 0 {
		return 0
	}
	return s.Amount / float64(s.NumElements)
}

// Validate checks the spill definition and its substance.
func (s *Spill) Validate() []model.Message {
	var msgs []model.Message
	if s.Amount < 0 || math.IsNaN(s.Amount) {
		msgs = append(msgs, model.Errorf(s.Name(), "spill amount must not be negative, got %g", s.Amount))
	}
	if s.NumElements <= 0 {
		msgs = append(msgs, model.Errorf(s.Name(), "spill must release at least one element"))
	}
	if !s.EndReleaseTime.IsZero() && s.EndReleaseTime.Before(s.ReleaseTime) {
		msgs = append(msgs, model.Errorf(s.Name(), "end release time is before release time"))
	}
	if s.Substance != nil {
		msgs = append(msgs, s.Substance.Validate()...)
	}
	return msgs
}

// Copy returns an independent definition with the same identity, used to
// populate the uncertain realization. The copy follows the on flag of the
// spill it was taken from.
func (s *Spill) Copy() *Spill {
	cp := *s
	cp.source = s
	if s.source != nil {
		cp.source = s.source
	}
	if s.EndPosition != nil {
		end := *s.EndPosition
		cp.EndPosition = &end
	}
	return &cp
}

// numToRelease returns how many more elements are due by the end of the
// window [modelTime, modelTime+timeStep) given how many already left.
func (s *Spill) numToRelease(released int, modelTime time.Time, timeStep time.Duration) int {
	if !s.active() || released >= s.NumElements {
		return 0
	}
	windowEnd := modelTime.Add(timeStep)
	if !s.ReleaseTime.Before(windowEnd) {
		return 0
	}
	end := s.EndTime()
	if !end.After(s.ReleaseTime) || !windowEnd.Before(end) {
		return s.NumElements - released
	}
	frac := windowEnd.Sub(s.ReleaseTime).Seconds() / end.Sub(s.ReleaseTime).Seconds()
	target := int(math.Round(frac * float64(s.NumElements)))
	if target <= released {
		return 0
	}
	return target - released
}

func (s *Spill) active() bool {
	if s.source != nil {
		return s.source.On()
	}
	return s.On()
}

// positionFor returns the starting position of the k-th element, spread
// along the release line.
func (s *Spill) positionFor(k int) model.Position {
	if s.EndPosition == nil || s.NumElements < 2 {
		return s.StartPosition
	}
	f := float64(k) / float64(s.NumElements-1)
	return model.Position{
		Lon: s.StartPosition.Lon + f*(s.EndPosition.Lon-s.StartPosition.Lon),
		Lat: s.StartPosition.Lat + f*(s.EndPosition.Lat-s.StartPosition.Lat),
		Z:   s.StartPosition.Z + f*(s.EndPosition.Z-s.StartPosition.Z),
	}
}
