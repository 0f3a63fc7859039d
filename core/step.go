package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/spill-simulator/elements"
	"github.com/signalsfoundry/spill-simulator/internal/logging"
	"github.com/signalsfoundry/spill-simulator/model"
	"github.com/signalsfoundry/spill-simulator/outputters"
	"github.com/signalsfoundry/spill-simulator/timectrl"
)

// StepOutput is what one call to Step produced. Outputs is keyed by
// outputter name; Valid reports whether any outputter wrote a record.
type StepOutput struct {
	StepNum   int
	ModelTime time.Time
	Outputs   map[string]any
	Valid     bool
}

// Step advances the model by one step. The first call after a rewind sets
// the run up and checks inputs; calls after the last step run the post-run
// hooks and return ErrRunComplete.
func (m *Model) Step(ctx context.Context) (StepOutput, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Model/Step",
		trace.WithAttributes(
			attribute.String("model.name", m.name),
			attribute.Int("model.step", m.clock.CurrentStep()+1),
		))
	defer span.End()

	out, err := m.step(ctx)
	switch {
	case errors.Is(err, ErrRunComplete):
		span.SetAttributes(attribute.Bool("model.complete", true))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (m *Model) step(ctx context.Context) (StepOutput, error) {
	started := time.Now()
	current := m.clock.CurrentStep()

	switch {
	case current == -1:
		if err := m.SetupModelRun(ctx); err != nil {
			return StepOutput{}, err
		}
		msgs, valid, err := m.CheckInputs()
		if err != nil {
			return StepOutput{}, err
		}
		if !valid {
			return StepOutput{}, &ValidationError{Messages: msgs}
		}
	case current >= m.clock.NumTimeSteps()-1:
		if err := m.PostModelRun(ctx); err != nil {
			return StepOutput{}, err
		}
		return StepOutput{StepNum: current, ModelTime: m.clock.Now()}, ErrRunComplete
	default:
		// Positions are in flux until the next release stamps them again.
		for _, sc := range m.spills.Items() {
			sc.ClearCurrentTimeStamp()
		}
		if err := m.setupTimeStep(); err != nil {
			return StepOutput{}, fmt.Errorf("setup time step %d: %w", current, err)
		}
		if err := m.moveElements(); err != nil {
			return StepOutput{}, fmt.Errorf("move elements at step %d: %w", current, err)
		}
		if err := m.weatherElements(); err != nil {
			return StepOutput{}, fmt.Errorf("weather elements at step %d: %w", current, err)
		}
		if err := m.stepIsDone(); err != nil {
			return StepOutput{}, fmt.Errorf("finish step %d: %w", current, err)
		}
	}

	step, now := m.clock.Advance()
	released, err := m.releaseElements(now)
	if err != nil {
		return StepOutput{}, fmt.Errorf("release elements at step %d: %w", step, err)
	}
	m.cache.SaveTimestep(step, m.spills)

	out, err := m.writeOutput(step)
	if err != nil {
		return out, fmt.Errorf("write output at step %d: %w", step, err)
	}

	live := 0
	for _, sc := range m.spills.Items() {
		live += sc.NumReleased()
		if m.metrics != nil {
			m.metrics.ObserveMassBalance(sc.Uncertain(), sc.MassBalance)
		}
	}
	elapsed := time.Since(started)
	if m.metrics != nil {
		m.metrics.ObserveStep(step, elapsed, released, live)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("elements.released", released),
		attribute.Int("elements.live", live),
	)
	m.log.Debug(ctx, "model step complete",
		logging.String("run_id", m.runID),
		logging.Step(step),
		logging.ModelTime(now),
		logging.Int("released", released),
		logging.Int("live", live),
		logging.Duration("elapsed", elapsed),
	)
	return out, nil
}

// SetupModelRun prepares every collection for a fresh run: it infers a
// time step if none is set, resolves references, orders the weatherers,
// allocates element arrays and calls every per-run hook.
func (m *Model) SetupModelRun(ctx context.Context) error {
	_, m.runID = logging.EnsureRunID(ctx)

	if m.clock.TimeStep() <= 0 {
		m.clock.SetTimeStep(m.defaultTimeStep())
	}

	m.ResolveReferences()

	m.environment.Remake()
	m.movers.Remake()
	m.weatherers.Remake()
	m.outputters.Remake()
	m.sortWeatherers()

	m.arrayTypes = m.collectArrayTypes()
	m.spills.PrepareForModelRun(m.arrayTypes)

	start := m.clock.StartTime()
	for _, e := range m.environment.Values() {
		if !e.On() {
			continue
		}
		if err := e.PrepareForModelRun(start); err != nil {
			return fmt.Errorf("prepare environment %q: %w", e.Name(), err)
		}
	}
	for _, mv := range m.movers.Values() {
		if !mv.On() {
			continue
		}
		if err := mv.PrepareForModelRun(); err != nil {
			return fmt.Errorf("prepare mover %q: %w", mv.Name(), err)
		}
	}
	for _, sc := range m.spills.Items() {
		for _, w := range m.weatherers.Values() {
			if !w.On() {
				continue
			}
			if err := w.PrepareForModelRun(sc); err != nil {
				return fmt.Errorf("prepare weatherer %q: %w", w.Name(), err)
			}
		}
	}
	info := outputters.RunInfo{
		StartTime:    start,
		TimeStep:     m.clock.TimeStep(),
		NumTimeSteps: m.clock.NumTimeSteps(),
		Uncertain:    m.spills.IsUncertain(),
		Spills:       m.spills,
		Cache:        m.cache,
	}
	for _, o := range m.outputters.Values() {
		if !o.On() {
			continue
		}
		if err := o.PrepareForModelRun(info); err != nil {
			return fmt.Errorf("prepare outputter %q: %w", o.Name(), err)
		}
	}

	m.log.Info(ctx, "model run set up",
		logging.String("run_id", m.runID),
		logging.String("model", m.name),
		logging.String("mode", string(m.mode)),
		logging.Time("start_time", start),
		logging.Duration("time_step", m.clock.TimeStep()),
		logging.Int("num_time_steps", m.clock.NumTimeSteps()),
		logging.Bool("uncertain", m.spills.IsUncertain()),
	)
	return nil
}

// defaultTimeStep picks a step for models that never set one: transport
// runs use a short step, weathering-only runs a long one.
func (m *Model) defaultTimeStep() time.Duration {
	for _, mv := range m.movers.Values() {
		if mv.On() {
			return DefaultTransportStep
		}
	}
	for _, w := range m.weatherers.Values() {
		if w.On() {
			return DefaultWeatheringOnlyStep
		}
	}
	return DefaultTransportStep
}

func (m *Model) sortWeatherers() {
	if m.weatherers.SortStable(func(a, b Weatherer) int { return a.SortKey() - b.SortKey() }) {
		m.log.Debug(context.Background(), "weatherers reordered")
	}
}

// collectArrayTypes is the union of the arrays requested by every active
// mover, weatherer and outputter, first request winning.
func (m *Model) collectArrayTypes() []elements.ArrayType {
	var out []elements.ArrayType
	seen := map[string]bool{}
	add := func(types []elements.ArrayType) {
		for _, t := range types {
			if !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t)
			}
		}
	}
	for _, mv := range m.movers.Values() {
		if mv.On() {
			add(mv.ArrayTypes())
		}
	}
	for _, w := range m.weatherers.Values() {
		if w.On() {
			add(w.ArrayTypes())
		}
	}
	for _, o := range m.outputters.Values() {
		if o.On() {
			add(o.ArrayTypes())
		}
	}
	return out
}

func (m *Model) setupTimeStep() error {
	ts, now := m.clock.TimeStep(), m.clock.Now()
	for _, e := range m.environment.Values() {
		if e.On() {
			if err := e.PrepareForModelStep(now); err != nil {
				return fmt.Errorf("environment %q: %w", e.Name(), err)
			}
		}
	}
	for _, sc := range m.spills.Items() {
		for _, mv := range m.movers.Values() {
			if mv.On() {
				if err := mv.PrepareForModelStep(sc, ts, now); err != nil {
					return fmt.Errorf("mover %q: %w", mv.Name(), err)
				}
			}
		}
		for _, w := range m.weatherers.Values() {
			if w.On() {
				if err := w.PrepareForModelStep(sc, ts, now); err != nil {
					return fmt.Errorf("weatherer %q: %w", w.Name(), err)
				}
			}
		}
	}
	for _, o := range m.outputters.Values() {
		if o.On() {
			if err := o.PrepareForModelStep(ts, now); err != nil {
				return fmt.Errorf("outputter %q: %w", o.Name(), err)
			}
		}
	}
	return nil
}

// moveElements refloats, sums every mover's displacement into the next
// positions, beaches, then commits the next positions.
func (m *Model) moveElements() error {
	ts, now := m.clock.TimeStep(), m.clock.Now()
	for _, sc := range m.spills.Items() {
		if sc.NumReleased() == 0 {
			continue
		}
		if m.spillMap != nil {
			if err := m.spillMap.RefloatElements(sc, ts); err != nil {
				return fmt.Errorf("refloat: %w", err)
			}
		}

		pos := sc.Array(elements.ArrayPositions).Floats()
		next := sc.Array(elements.ArrayNextPositions).Floats()
		copy(next, pos)
		for _, mv := range m.movers.Values() {
			if !mv.On() {
				continue
			}
			delta, err := mv.GetMove(sc, ts, now)
			if err != nil {
				return fmt.Errorf("mover %q: %w", mv.Name(), err)
			}
			if len(delta) != len(next) {
				return fmt.Errorf("mover %q returned %d values for %d position values", mv.Name(), len(delta), len(next))
			}
			floats.Add(next, delta)
		}

		if m.spillMap != nil {
			if err := m.spillMap.BeachElements(sc); err != nil {
				return fmt.Errorf("beach: %w", err)
			}
		}
		for i := range sc.NumReleased() {
			if sc.Status(i) == model.StatusOffMaps {
				sc.SetStatus(i, model.StatusToBeRemoved)
			}
		}
		updateFateStatus(sc)
		copy(pos, next)
	}
	return nil
}

// updateFateStatus marks beached elements as not weathering and places the
// remaining in-water elements at the surface or below it, leaving elements
// already claimed by a response process alone.
func updateFateStatus(sc *elements.SpillContainer) {
	next := sc.Array(elements.ArrayNextPositions)
	for i := range sc.NumReleased() {
		switch sc.Status(i) {
		case model.StatusOnLand:
			sc.SetFate(i, model.FateNonWeather)
		case model.StatusInWater:
			if sc.Fate(i).Any(model.FateClaimed) {
				continue
			}
			if next.Value(i, 2) == 0 {
				sc.SetFate(i, model.FateSurfaceWeather)
			} else {
				sc.SetFate(i, model.FateSubsurfWeather)
			}
		}
	}
}

// weatherElements runs every active weatherer over each substep of the
// current time step.
func (m *Model) weatherElements() error {
	if m.weatherers.Len() == 0 {
		return nil
	}
	substeps := timectrl.SplitSubsteps(m.clock.Now(), m.clock.TimeStep(), m.weatheringSubsteps)
	for _, sc := range m.spills.Items() {
		if sc.NumReleased() == 0 {
			continue
		}
		sc.ResetFateView()
		for _, w := range m.weatherers.Values() {
			if !w.On() {
				continue
			}
			for _, sub := range substeps {
				if err := w.WeatherElements(sc, sub.Duration, sub.Start); err != nil {
					return fmt.Errorf("weatherer %q: %w", w.Name(), err)
				}
			}
		}
	}
	return nil
}

func (m *Model) stepIsDone() error {
	ts := m.clock.TimeStep()
	for _, sc := range m.spills.Items() {
		for _, mv := range m.movers.Values() {
			if mv.On() {
				if err := mv.ModelStepIsDone(sc); err != nil {
					return fmt.Errorf("mover %q: %w", mv.Name(), err)
				}
			}
		}
		for _, w := range m.weatherers.Values() {
			if w.On() {
				if err := w.ModelStepIsDone(sc); err != nil {
					return fmt.Errorf("weatherer %q: %w", w.Name(), err)
				}
			}
		}
		sc.AgeElements(ts)
		if n := sc.ModelStepIsDone(); n > 0 {
			m.log.Debug(context.Background(), "elements removed",
				logging.Bool("uncertain", sc.Uncertain()), logging.Int("count", n))
		}
	}
	for _, o := range m.outputters.Values() {
		if o.On() {
			if err := o.ModelStepIsDone(); err != nil {
				return fmt.Errorf("outputter %q: %w", o.Name(), err)
			}
		}
	}
	return nil
}

// releaseElements stamps each container with the new model time, releases
// what is due in the coming step and lets the weatherers initialise the new
// rows.
func (m *Model) releaseElements(now time.Time) (int, error) {
	ts := m.clock.TimeStep()
	total := 0
	for _, sc := range m.spills.Items() {
		sc.SetCurrentTimeStamp(now)
		n := sc.ReleaseElements(ts, now)
		if n == 0 {
			continue
		}
		if !sc.Uncertain() {
			total += n
		}
		m.log.Debug(context.Background(), "elements released",
			logging.Bool("uncertain", sc.Uncertain()),
			logging.Int("count", n),
			logging.ModelTime(now),
		)
		for _, w := range m.weatherers.Values() {
			if !w.On() {
				continue
			}
			if err := w.InitializeData(sc, n); err != nil {
				return total, fmt.Errorf("weatherer %q: %w", w.Name(), err)
			}
		}
	}
	return total, nil
}

func (m *Model) writeOutput(step int) (StepOutput, error) {
	out := StepOutput{
		StepNum:   step,
		ModelTime: m.clock.Now(),
		Outputs:   make(map[string]any),
	}
	isLast := step == m.clock.NumTimeSteps()-1
	for _, o := range m.outputters.Values() {
		if !o.On() {
			continue
		}
		rec, err := o.WriteOutput(step, isLast)
		if err != nil {
			return out, fmt.Errorf("outputter %q: %w", o.Name(), err)
		}
		if rec != nil {
			out.Outputs[o.Name()] = rec
			out.Valid = true
		}
	}
	return out, nil
}

// PostModelRun calls every per-run cleanup hook. All hooks run even when
// one fails; the errors are joined.
func (m *Model) PostModelRun(ctx context.Context) error {
	var errs []error
	for _, e := range m.environment.Values() {
		if e.On() {
			if err := e.PostModelRun(); err != nil {
				errs = append(errs, fmt.Errorf("environment %q: %w", e.Name(), err))
			}
		}
	}
	for _, mv := range m.movers.Values() {
		if mv.On() {
			if err := mv.PostModelRun(); err != nil {
				errs = append(errs, fmt.Errorf("mover %q: %w", mv.Name(), err))
			}
		}
	}
	for _, w := range m.weatherers.Values() {
		if w.On() {
			if err := w.PostModelRun(); err != nil {
				errs = append(errs, fmt.Errorf("weatherer %q: %w", w.Name(), err))
			}
		}
	}
	for _, o := range m.outputters.Values() {
		if o.On() {
			if err := o.PostModelRun(); err != nil {
				errs = append(errs, fmt.Errorf("outputter %q: %w", o.Name(), err))
			}
		}
	}
	if m.metrics != nil {
		m.metrics.ObserveRunComplete()
	}
	m.log.Info(ctx, "model run complete",
		logging.String("run_id", m.runID),
		logging.Int("steps", m.clock.NumTimeSteps()),
	)
	return errors.Join(errs...)
}

// FullRun steps the model until it completes and returns every step's
// output. With rewind set the model is rewound first. Cancelling ctx stops
// the run between steps.
func (m *Model) FullRun(ctx context.Context, rewind bool) ([]StepOutput, error) {
	if rewind {
		if err := m.Rewind(); err != nil {
			return nil, err
		}
	}
	var outs []StepOutput
	for {
		if err := ctx.Err(); err != nil {
			return outs, err
		}
		out, err := m.Step(ctx)
		if errors.Is(err, ErrRunComplete) {
			return outs, nil
		}
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
}

// Steps rewinds the model and returns an iterator over its steps. Iteration
// ends after the last step, on the first error (which is yielded) or when
// ctx is cancelled.
func (m *Model) Steps(ctx context.Context) iter.Seq2[StepOutput, error] {
	return func(yield func(StepOutput, error) bool) {
		if err := m.Rewind(); err != nil {
			yield(StepOutput{}, err)
			return
		}
		for {
			if err := ctx.Err(); err != nil {
				yield(StepOutput{}, err)
				return
			}
			out, err := m.Step(ctx)
			if errors.Is(err, ErrRunComplete) {
				return
			}
			if !yield(out, err) || err != nil {
				return
			}
		}
	}
}
