package environment

import (
	"math"
	"slices"
	"time"

	"github.com/signalsfoundry/spill-simulator/model"
)

// WindSample is a wind observation. Direction is the meteorological
// direction the wind blows from, in degrees.
type WindSample struct {
	Time      time.Time `json:"time"`
	Speed     float64   `json:"speed"` // m/s
	Direction float64   `json:"direction"`
}

// Wind is a point wind time series, linearly interpolated in velocity
// components and held constant outside the sampled interval.
type Wind struct {
	Base
	samples []WindSample
}

// NewWind builds a wind from samples in any order.
func NewWind(samples ...WindSample) *Wind {
	w := &Wind{Base: newBase("Wind", model.RoleWind)}
	w.SetSamples(samples)
	return w
}

// NewConstantWind builds a wind that never changes.
func NewConstantWind(speed, direction float64) *Wind {
	return NewWind(WindSample{Speed: speed, Direction: direction})
}

// SetSamples replaces the time series.
func (w *Wind) SetSamples(samples []WindSample) {
	w.samples = slices.Clone(samples)
	slices.SortFunc(w.samples, func(a, b WindSample) int { return a.Time.Compare(b.Time) })
}

// Samples returns a copy of the time series.
func (w *Wind) Samples() []WindSample { return slices.Clone(w.samples) }

// VelocityAt returns the eastward and northward wind components in m/s.
func (w *Wind) VelocityAt(t time.Time) (u, v float64) {
	switch len(w.samples) {
	case 0:
		return 0, 0
	case 1:
		return components(w.samples[0])
	}
	if !t.After(w.samples[0].Time) {
		return components(w.samples[0])
	}
	last := w.samples[len(w.samples)-1]
	if !t.Before(last.Time) {
		return components(last)
	}
	i, _ := slices.BinarySearchFunc(w.samples, t, func(s WindSample, t time.Time) int { return s.Time.Compare(t) })
	a, b := w.samples[i-1], w.samples[i]
	frac := t.Sub(a.Time).Seconds() / b.Time.Sub(a.Time).Seconds()
	ua, va := components(a)
	ub, vb := components(b)
	return ua + frac*(ub-ua), va + frac*(vb-va)
}

// SpeedAt returns the wind speed in m/s.
func (w *Wind) SpeedAt(t time.Time) float64 {
	u, v := w.VelocityAt(t)
	return math.Hypot(u, v)
}

func (w *Wind) Validate() []model.Message {
	var msgs []model.Message
	if len(w.samples) == 0 {
		msgs = append(msgs, model.Errorf(w.Name(), "wind has no samples"))
	}
	for _, s := range w.samples {
		if s.Speed < 0 {
			msgs = append(msgs, model.Errorf(w.Name(), "negative wind speed %g at %s", s.Speed, s.Time.Format(time.RFC3339)))
		}
	}
	return msgs
}

// components converts a "blowing from" direction into the velocity the air
// moves with.
func components(s WindSample) (u, v float64) {
	rad := s.Direction * math.Pi / 180
	return -s.Speed * math.Sin(rad), -s.Speed * math.Cos(rad)
}
