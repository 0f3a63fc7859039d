package movers

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
)

// RandomMover applies horizontal turbulent diffusion as a Gaussian random
// walk.
type RandomMover struct {
	Base

	DiffusionCoef    float64 // cm^2/s
	UncertaintyScale float64 // multiplies the coefficient for the uncertain realization

	rng *rand.Rand
}

// NewRandomMover builds a diffusion mover seeded with 1.
func NewRandomMover(diffusionCoef float64) *RandomMover {
	m := &RandomMover{Base: newBase("RandomMover"), DiffusionCoef: diffusionCoef, UncertaintyScale: 2}
	m.Seed(1)
	return m
}

// Seed resets the random stream.
func (m *RandomMover) Seed(seed uint64) {
	m.rng = rand.New(rand.NewPCG(seed, seed))
}

func (m *RandomMover) Validate() []model.Message {
	if m.DiffusionCoef < 0 {
		return []model.Message{model.Errorf(m.Name(), "negative diffusion coefficient %g", m.DiffusionCoef)}
	}
	return nil
}

func (m *RandomMover) GetMove(sc *elements.SpillContainer, timeStep time.Duration, _ time.Time) ([]float64, error) {
	out := delta(sc)
	d := m.DiffusionCoef * 1e-4 // m^2/s
	if sc.Uncertain() {
		d *= m.UncertaintyScale
	}
	sigma := math.Sqrt(2 * d * timeStep.Seconds())
	if sigma == 0 {
		return out, nil
	}
	pos := sc.Array(elements.ArrayPositions)
	for i := range sc.NumReleased() {
		if !movable(sc, i) {
			continue
		}
		dx := sigma * m.rng.NormFloat64()
		dy := sigma * m.rng.NormFloat64()
		out[3*i], out[3*i+1] = metersToLonLat(dx, dy, pos.Row(i)[1])
	}
	return out, nil
}
