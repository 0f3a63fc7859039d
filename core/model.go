// Package core is the time-stepping engine: it owns the run clock and the
// participant collections, resolves references between them and drives
// every step's phases in a fixed order.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/spill-simulator/cache"
	"github.com/signalsfoundry/spill-simulator/collection"
	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/internal/logging"
	"github.com/signalsfoundry/spill-simulator/spillmap"
	"github.com/signalsfoundry/spill-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/spill-simulator/core"

// Mode selects the client the model is configured for.
type Mode string

const (
	ModeGnome Mode = "gnome"
	ModeADIOS Mode = "adios"
	ModeROC   Mode = "roc"
)

func (m Mode) valid() bool {
	switch m {
	case ModeGnome, ModeADIOS, ModeROC:
		return true
	}
	return false
}

// Default run parameters.
const (
	DefaultDuration           = 48 * time.Hour
	DefaultTransportStep      = 900 * time.Second
	DefaultWeatheringOnlyStep = 3600 * time.Second
)

// Model is the simulation engine. It is not safe for concurrent use: one
// goroutine drives Step, and everything it owns is mutated only from there.
//
// Collection changes have documented side effects:
//   - adding, replacing or removing a mover, weatherer or environment object
//     rewinds the model;
//   - adding or replacing a mover, weatherer or environment object also adds
//     any wind, water, waves or current it already references to the
//     environment collection;
//   - adding or replacing an outputter hands it the model's element cache.
type Model struct {
	name string
	mode Mode

	clock *timectrl.TimeController

	environment *collection.Ordered[Environment]
	movers      *collection.Ordered[Mover]
	weatherers  *collection.Ordered[Weatherer]
	outputters  *collection.Ordered[Outputter]

	spills   *elements.SpillContainerPair
	cache    *cache.ElementCache
	spillMap Map

	weatheringSubsteps  int
	makeDefaultRefs     bool
	strict              bool
	tolerateMissingRefs bool

	arrayTypes []elements.ArrayType

	log     logging.Logger
	metrics StepMetricsRecorder
	runID   string

	unsubscribe []func()
}

// ModelOption customises Model construction.
type ModelOption func(*Model)

// WithName sets the model name used in messages.
func WithName(name string) ModelOption {
	return func(m *Model) { m.name = name }
}

// WithStartTime sets the run start.
func WithStartTime(t time.Time) ModelOption {
	return func(m *Model) { m.clock.SetStartTime(t) }
}

// WithDuration sets the run length.
func WithDuration(d time.Duration) ModelOption {
	return func(m *Model) { m.clock.SetDuration(d) }
}

// WithTimeStep fixes the time step. Without it the step is inferred when
// the run is set up.
func WithTimeStep(d time.Duration) ModelOption {
	return func(m *Model) { m.clock.SetTimeStep(d) }
}

// WithWeatheringSubsteps sets how many substeps each weathering step is
// split into.
func WithWeatheringSubsteps(n int) ModelOption {
	return func(m *Model) { m.weatheringSubsteps = max(n, 1) }
}

// WithMap sets the land/water map.
func WithMap(mp Map) ModelOption {
	return func(m *Model) { m.spillMap = mp }
}

// WithUncertain turns on the uncertain realization.
func WithUncertain(on bool) ModelOption {
	return func(m *Model) { m.spills.SetUncertain(on) }
}

// WithCacheEnabled turns per-step caching on or off.
func WithCacheEnabled(on bool) ModelOption {
	return func(m *Model) { m.cache.SetEnabled(on) }
}

// WithMode sets the model mode.
func WithMode(mode Mode) ModelOption {
	return func(m *Model) { m.mode = mode }
}

// WithMakeDefaultRefs sets the default-reference flag given to every object
// added to the model afterwards. Resolution itself always runs and honours
// each object's own flag.
func WithMakeDefaultRefs(on bool) ModelOption {
	return func(m *Model) { m.makeDefaultRefs = on }
}

// WithStrict makes a run whose spills all start after it ends invalid
// rather than merely warned about.
func WithStrict(on bool) ModelOption {
	return func(m *Model) { m.strict = on }
}

// WithTolerateMissingRefs downgrades missing environment roles from errors
// to warnings.
func WithTolerateMissingRefs(on bool) ModelOption {
	return func(m *Model) { m.tolerateMissingRefs = on }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) ModelOption {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional per-step metrics recorder.
func WithMetricsRecorder(r StepMetricsRecorder) ModelOption {
	return func(m *Model) { m.metrics = r }
}

// NewModel builds a rewound model with empty collections.
func NewModel(opts ...ModelOption) (*Model, error) {
	m := &Model{}
	if err := m.init(opts...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) init(opts ...ModelOption) error {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	log, metrics := m.log, m.metrics
	if log == nil {
		log = logging.Noop()
	}
	*m = Model{
		name:               "Model",
		mode:               ModeGnome,
		clock:              timectrl.NewTimeController(time.Now().UTC().Truncate(time.Hour), DefaultDuration, 0),
		environment:        collection.NewOrdered[Environment](),
		movers:             collection.NewOrdered[Mover](),
		weatherers:         collection.NewOrdered[Weatherer](),
		outputters:         collection.NewOrdered[Outputter](),
		spills:             elements.NewSpillContainerPair(false),
		cache:              cache.NewElementCache(true),
		spillMap:           spillmap.NewWaterWorld(),
		weatheringSubsteps: 1,
		makeDefaultRefs:    true,
		log:                log,
		metrics:            metrics,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.mode.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m.mode)
	}
	m.registerCallbacks()
	return nil
}

// Reset discards every collection and setting and rebuilds the model from
// opts. The logger and metrics recorder are kept unless opts replace them.
func (m *Model) Reset(opts ...ModelOption) error {
	return m.init(opts...)
}

func (m *Model) registerCallbacks() {
	rewinding := []collection.EventType{collection.EventAdd, collection.EventReplace, collection.EventRemove}
	m.unsubscribe = []func(){
		m.movers.Subscribe(func(ev collection.Event[Mover]) {
			if ev.Type != collection.EventRemove {
				m.applyDefaultRefs(ev.Item)
				m.addReferencedEnvironment(ev.Item)
			}
			m.rewindFromCallback()
		}, rewinding...),
		m.weatherers.Subscribe(func(ev collection.Event[Weatherer]) {
			if ev.Type != collection.EventRemove {
				m.applyDefaultRefs(ev.Item)
				m.addReferencedEnvironment(ev.Item)
			}
			m.rewindFromCallback()
		}, rewinding...),
		m.environment.Subscribe(func(ev collection.Event[Environment]) {
			if ev.Type != collection.EventRemove {
				m.applyDefaultRefs(ev.Item)
				m.addReferencedEnvironment(ev.Item)
			}
			m.rewindFromCallback()
		}, rewinding...),
		m.outputters.Subscribe(func(ev collection.Event[Outputter]) {
			ev.Item.SetCache(m.cache)
		}, collection.EventAdd, collection.EventReplace),
	}
}

// applyDefaultRefs hands the model's default-reference flag to a newly
// added object.
func (m *Model) applyDefaultRefs(obj interface{ SetMakeDefaultRefs(bool) }) {
	if !m.makeDefaultRefs {
		obj.SetMakeDefaultRefs(false)
	}
}

func (m *Model) rewindFromCallback() {
	if err := m.Rewind(); err != nil {
		m.log.Error(context.Background(), "rewind after collection change failed", logging.Err(err))
	}
}

// addReferencedEnvironment puts any environment object obj already points
// at into the environment collection.
func (m *Model) addReferencedEnvironment(obj any) {
	var refs []Environment
	if r, ok := obj.(WindReferrer); ok && r.Wind() != nil {
		refs = append(refs, r.Wind())
	}
	if r, ok := obj.(WaterReferrer); ok && r.Water() != nil {
		refs = append(refs, r.Water())
	}
	if r, ok := obj.(WavesReferrer); ok && r.Waves() != nil {
		refs = append(refs, r.Waves())
	}
	if r, ok := obj.(CurrentReferrer); ok && r.Current() != nil {
		refs = append(refs, r.Current())
	}
	for _, e := range refs {
		if m.environment.Contains(e.ID()) {
			continue
		}
		if err := m.environment.Add(e); err != nil && !errors.Is(err, collection.ErrDuplicate) {
			m.log.Warn(context.Background(), "could not add referenced environment object",
				logging.String("id", e.ID()), logging.Err(err))
		}
	}
}

// Rewind returns the model to its pre-run state: step -1, no elements, an
// empty cache, reseeded random state and rewound outputters. Rewinding
// twice is the same as rewinding once.
func (m *Model) Rewind() error {
	m.clock.Reset()
	m.spills.Rewind()
	m.cache.Rewind()
	m.reseed(1)

	var errs []error
	for _, o := range m.outputters.Values() {
		if err := o.Rewind(); err != nil {
			errs = append(errs, fmt.Errorf("rewind outputter %q: %w", o.Name(), err))
		}
	}
	m.log.Debug(context.Background(), "model rewound", logging.String("model", m.name))
	return errors.Join(errs...)
}

func (m *Model) reseed(seed uint64) {
	var seeders []any
	for _, mv := range m.movers.Values() {
		seeders = append(seeders, mv)
	}
	for _, w := range m.weatherers.Values() {
		seeders = append(seeders, w)
	}
	seeders = append(seeders, m.spillMap)
	for _, s := range seeders {
		if sd, ok := s.(Seeder); ok {
			sd.Seed(seed)
		}
	}
}

// ---- Accessors ----

func (m *Model) Name() string { return m.name }
func (m *Model) Mode() Mode   { return m.mode }

// Environment returns the environment collection.
func (m *Model) Environment() *collection.Ordered[Environment] { return m.environment }

// Movers returns the mover collection.
func (m *Model) Movers() *collection.Ordered[Mover] { return m.movers }

// Weatherers returns the weatherer collection.
func (m *Model) Weatherers() *collection.Ordered[Weatherer] { return m.weatherers }

// Outputters returns the outputter collection.
func (m *Model) Outputters() *collection.Ordered[Outputter] { return m.outputters }

// Spills returns the spill container pair.
func (m *Model) Spills() *elements.SpillContainerPair { return m.spills }

// Cache returns the element cache.
func (m *Model) Cache() *cache.ElementCache { return m.cache }

// Clock exposes model time read-only.
func (m *Model) Clock() timectrl.SimClock { return m.clock }

// OnStep registers fn to run every time the model advances a step.
func (m *Model) OnStep(fn func(step int, t time.Time)) { m.clock.AddListener(fn) }

func (m *Model) Map() Map                         { return m.spillMap }
func (m *Model) StartTime() time.Time             { return m.clock.StartTime() }
func (m *Model) Duration() time.Duration          { return m.clock.Duration() }
func (m *Model) TimeStep() time.Duration          { return m.clock.TimeStep() }
func (m *Model) NumTimeSteps() int                { return m.clock.NumTimeSteps() }
func (m *Model) CurrentTimeStep() int             { return m.clock.CurrentStep() }
func (m *Model) ModelTime() time.Time             { return m.clock.Now() }
func (m *Model) WeatheringSubsteps() int          { return m.weatheringSubsteps }
func (m *Model) Uncertain() bool                  { return m.spills.IsUncertain() }
func (m *Model) ArrayTypes() []elements.ArrayType { return m.arrayTypes }

// ---- Mutators that invalidate a run ----

// SetStartTime changes the start time and rewinds.
func (m *Model) SetStartTime(t time.Time) error {
	m.clock.SetStartTime(t)
	return m.Rewind()
}

// SetDuration changes the duration, rewinding only when the run shrinks.
func (m *Model) SetDuration(d time.Duration) error {
	shrink := d < m.clock.Duration()
	m.clock.SetDuration(d)
	if shrink {
		return m.Rewind()
	}
	return nil
}

// SetTimeStep changes the time step and rewinds.
func (m *Model) SetTimeStep(d time.Duration) error {
	m.clock.SetTimeStep(d)
	return m.Rewind()
}

// SetMap swaps the map and rewinds.
func (m *Model) SetMap(mp Map) error {
	m.spillMap = mp
	return m.Rewind()
}

// SetUncertain toggles the uncertain realization, rewinding on change.
func (m *Model) SetUncertain(on bool) error {
	if on == m.spills.IsUncertain() {
		return nil
	}
	m.spills.SetUncertain(on)
	return m.Rewind()
}

// SetCacheEnabled turns caching on or off.
func (m *Model) SetCacheEnabled(on bool) { m.cache.SetEnabled(on) }

// SetWeatheringSubsteps changes the weathering substep count.
func (m *Model) SetWeatheringSubsteps(n int) { m.weatheringSubsteps = max(n, 1) }

// AddSpill registers spills with both realizations and rewinds.
func (m *Model) AddSpill(spills ...*elements.Spill) error {
	for _, s := range spills {
		if m.spills.Get(s.ID()) == nil {
			m.applyDefaultRefs(s)
		}
	}
	if err := m.spills.Add(spills...); err != nil {
		return err
	}
	return m.Rewind()
}

// RemoveSpill drops a spill and rewinds.
func (m *Model) RemoveSpill(id string) error {
	if !m.spills.Remove(id) {
		return fmt.Errorf("%w: spill %q", ErrUnknownObject, id)
	}
	return m.Rewind()
}

// SetMakeDefaultRefs sets the default-reference flag on the model and on
// every object it holds.
func (m *Model) SetMakeDefaultRefs(on bool) {
	m.makeDefaultRefs = on
	for _, e := range m.environment.Values() {
		e.SetMakeDefaultRefs(on)
	}
	for _, mv := range m.movers.Values() {
		mv.SetMakeDefaultRefs(on)
	}
	for _, w := range m.weatherers.Values() {
		w.SetMakeDefaultRefs(on)
	}
	for _, sc := range m.spills.Items() {
		for _, s := range sc.Spills() {
			s.SetMakeDefaultRefs(on)
		}
	}
}

// ContainsObject reports whether id names the map, a spill or a member of
// any collection.
func (m *Model) ContainsObject(id string) bool {
	switch {
	case m.spillMap != nil && m.spillMap.ID() == id,
		m.environment.Contains(id),
		m.movers.Contains(id),
		m.weatherers.Contains(id),
		m.outputters.Contains(id),
		m.spills.Get(id) != nil:
		return true
	}
	return false
}
