package environment

import (
	"time"

	"github.com/signalsfoundry/spill-simulator/model"
)

// Current is a spatially uniform surface current.
type Current struct {
	Base

	U float64 // eastward, m/s
	V float64 // northward, m/s
}

// NewCurrent builds a constant current.
func NewCurrent(u, v float64) *Current {
	return &Current{Base: newBase("Current", model.RoleCurrent), U: u, V: v}
}

// VelocityAt returns the current velocity in m/s.
func (c *Current) VelocityAt(time.Time) (u, v float64) { return c.U, c.V }
