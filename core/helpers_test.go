package core

import (
	"testing"
	"time"

	"github.com/signalsfoundry/spill-simulator/cache"
	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/model"
	"github.com/signalsfoundry/spill-simulator/outputters"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// stubMover shifts every element east by DLon degrees per call.
type stubMover struct {
	model.Object
	DLon float64

	prepared, moves, done, posted int
}

func newStubMover(dlon float64) *stubMover {
	return &stubMover{Object: model.NewObject("stubMover"), DLon: dlon}
}

func (s *stubMover) ArrayTypes() []elements.ArrayType { return nil }
func (s *stubMover) Validate() []model.Message        { return nil }
func (s *stubMover) PrepareForModelRun() error        { s.prepared++; return nil }
func (s *stubMover) PostModelRun() error              { s.posted++; return nil }

func (s *stubMover) PrepareForModelStep(*elements.SpillContainer, time.Duration, time.Time) error {
	return nil
}

func (s *stubMover) GetMove(sc *elements.SpillContainer, _ time.Duration, _ time.Time) ([]float64, error) {
	s.moves++
	out := make([]float64, 3*sc.NumReleased())
	for i := range sc.NumReleased() {
		out[3*i] = s.DLon
	}
	return out, nil
}

func (s *stubMover) ModelStepIsDone(*elements.SpillContainer) error { s.done++; return nil }

// stubWeatherer records every hook call.
type stubWeatherer struct {
	model.Object
	key    int
	arrays []elements.ArrayType

	substeps    []time.Duration
	starts      []time.Time
	initialized []int
	posted      int
}

func newStubWeatherer(name string, key int) *stubWeatherer {
	return &stubWeatherer{Object: model.NewObject(name), key: key}
}

func (s *stubWeatherer) SortKey() int                     { return s.key }
func (s *stubWeatherer) ArrayTypes() []elements.ArrayType { return s.arrays }
func (s *stubWeatherer) Validate() []model.Message        { return nil }

func (s *stubWeatherer) PrepareForModelRun(*elements.SpillContainer) error { return nil }

func (s *stubWeatherer) PrepareForModelStep(*elements.SpillContainer, time.Duration, time.Time) error {
	return nil
}

func (s *stubWeatherer) WeatherElements(_ *elements.SpillContainer, dt time.Duration, start time.Time) error {
	s.substeps = append(s.substeps, dt)
	s.starts = append(s.starts, start)
	return nil
}

func (s *stubWeatherer) InitializeData(_ *elements.SpillContainer, n int) error {
	s.initialized = append(s.initialized, n)
	return nil
}

func (s *stubWeatherer) ModelStepIsDone(*elements.SpillContainer) error { return nil }
func (s *stubWeatherer) PostModelRun() error                            { s.posted++; return nil }

// recordingOutputter returns the step number as its record.
type recordingOutputter struct {
	model.Object

	cache    *cache.ElementCache
	info     outputters.RunInfo
	written  []int
	lastFlag []bool
	rewinds  int
	posted   int
}

func newRecordingOutputter() *recordingOutputter {
	return &recordingOutputter{Object: model.NewObject("recorder")}
}

func (r *recordingOutputter) ArrayTypes() []elements.ArrayType { return nil }
func (r *recordingOutputter) Validate() []model.Message        { return nil }
func (r *recordingOutputter) SetCache(c *cache.ElementCache)   { r.cache = c }

func (r *recordingOutputter) PrepareForModelRun(info outputters.RunInfo) error {
	r.info = info
	return nil
}

func (r *recordingOutputter) PrepareForModelStep(time.Duration, time.Time) error { return nil }

func (r *recordingOutputter) WriteOutput(step int, isLast bool) (any, error) {
	r.written = append(r.written, step)
	r.lastFlag = append(r.lastFlag, isLast)
	return step, nil
}

func (r *recordingOutputter) ModelStepIsDone() error { return nil }
func (r *recordingOutputter) PostModelRun() error    { r.posted++; return nil }

func (r *recordingOutputter) Rewind() error {
	r.rewinds++
	r.written = nil
	r.lastFlag = nil
	return nil
}

func pointSpill(name string, release time.Time, n int) *elements.Spill {
	return elements.NewSpill(name, release, 1000, n, model.Position{}, nil)
}

func mustModel(t *testing.T, opts ...ModelOption) *Model {
	t.Helper()
	m, err := NewModel(opts...)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}
