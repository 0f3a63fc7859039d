// Package outputters turns per-step element state into output records.
// Outputters read from the element cache when it is enabled and from the
// live containers otherwise.
package outputters

import (
	"errors"
	"time"

	"github.com/signalsfoundry/spill-simulator/cache"
	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
)

// RunInfo is what an outputter learns about a run when it is prepared.
type RunInfo struct {
	StartTime    time.Time
	TimeStep     time.Duration
	NumTimeSteps int
	Uncertain    bool
	Spills       *elements.SpillContainerPair
	Cache        *cache.ElementCache
}

// Base implements output cadence and data access shared by all outputters.
type Base struct {
	model.Object

	// OutputTimestep is the minimum model time between writes; zero writes
	// every step.
	OutputTimestep time.Duration
	OutputZeroStep bool
	OutputLastStep bool

	cache       *cache.ElementCache
	info        RunInfo
	lastWritten time.Time
	wrote       bool
}

func newBase(name string) Base {
	return Base{Object: model.NewObject(name), OutputZeroStep: true, OutputLastStep: true}
}

func (b *Base) ArrayTypes() []elements.ArrayType { return nil }
func (b *Base) Validate() []model.Message        { return nil }

// SetCache hooks the outputter up to the model's element cache.
func (b *Base) SetCache(c *cache.ElementCache) { b.cache = c }

func (b *Base) PrepareForModelRun(info RunInfo) error {
	b.info = info
	if info.Cache != nil {
		b.cache = info.Cache
	}
	b.wrote = false
	return nil
}

func (b *Base) PrepareForModelStep(time.Duration, time.Time) error { return nil }
func (b *Base) ModelStepIsDone() error                             { return nil }
func (b *Base) PostModelRun() error                                { return nil }

func (b *Base) Rewind() error {
	b.wrote = false
	return nil
}

// StepTime returns the model time of step.
func (b *Base) StepTime(step int) time.Time {
	return b.info.StartTime.Add(time.Duration(step) * b.info.TimeStep)
}

// ShouldWrite applies the output cadence to step and records the write.
func (b *Base) ShouldWrite(step int, isLast bool) bool {
	t := b.StepTime(step)
	write := false
	switch {
	case step == 0:
		write = b.OutputZeroStep
	case isLast && b.OutputLastStep:
		write = true
	case b.OutputTimestep <= 0:
		write = true
	case !b.wrote || t.Sub(b.lastWritten) >= b.OutputTimestep:
		write = true
	}
	if write {
		b.lastWritten, b.wrote = t, true
	}
	return write
}

// Containers returns the element state for step, certain realization first.
func (b *Base) Containers(step int) ([]*elements.ContainerSnapshot, error) {
	snap, err := b.cache.LoadTimestep(step)
	if err == nil {
		return snap.Containers, nil
	}
	if !errors.Is(err, cache.ErrDisabled) {
		return nil, err
	}
	if b.info.Spills == nil {
		return nil, err
	}
	return b.info.Spills.Snapshot(), nil
}
