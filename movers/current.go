package movers

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/environment"
	"github.com/signalsfoundry/spill-simulator/model"
)

// CurrentMover advects in-water elements with the ambient current.
type CurrentMover struct {
	Base
	current *environment.Current
}

// NewCurrentMover builds a current mover; current may be nil and resolved
// later.
func NewCurrentMover(current *environment.Current) *CurrentMover {
	return &CurrentMover{Base: newBase("CurrentMover"), current: current}
}

func (m *CurrentMover) Current() *environment.Current     { return m.current }
func (m *CurrentMover) SetCurrent(c *environment.Current) { m.current = c }

func (m *CurrentMover) Validate() []model.Message {
	if m.current == nil && !m.MakeDefaultRefs() {
		return []model.Message{model.Errorf(m.Name(), "current mover has no current")}
	}
	return nil
}

func (m *CurrentMover) GetMove(sc *elements.SpillContainer, timeStep time.Duration, modelTime time.Time) ([]float64, error) {
	out := delta(sc)
	if m.current == nil {
		return out, nil
	}
	u, v := m.current.VelocityAt(modelTime)
	pos := sc.Array(elements.ArrayPositions)
	dt := timeStep.Seconds()
	for i := range sc.NumReleased() {
		if !movable(sc, i) {
			continue
		}
		out[3*i], out[3*i+1] = metersToLonLat(u*dt, v*dt, pos.Row(i)[1])
	}
	return out, nil
}
