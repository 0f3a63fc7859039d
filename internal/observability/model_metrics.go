package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ModelCollector exposes per-step simulation metrics. It satisfies the
// engine's StepMetricsRecorder.
type ModelCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal       prometheus.Counter
	StepDuration     prometheus.Histogram
	CurrentStep      prometheus.Gauge
	ElementsReleased prometheus.Counter
	ElementsLive     prometheus.Gauge
	MassBalance      *prometheus.GaugeVec
	RunsCompleted    prometheus.Counter
}

// NewModelCollector registers model metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewModelCollector(reg prometheus.Registerer) (*ModelCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "model_steps_total",
		Help: "Total number of model steps taken.",
	}), "model_steps_total")
	if err != nil {
		return nil, err
	}

	stepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "model_step_duration_seconds",
		Help:    "Wall-clock duration of one model step.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	})
	stepDuration, err = registerHistogram(reg, stepDuration, "model_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	current, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "model_current_step",
		Help: "Index of the step the model last completed.",
	}), "model_current_step")
	if err != nil {
		return nil, err
	}

	released, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "model_elements_released_total",
		Help: "Total number of elements released into the certain realization.",
	}), "model_elements_released_total")
	if err != nil {
		return nil, err
	}

	live, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "model_elements_live",
		Help: "Number of elements currently held across all realizations.",
	}), "model_elements_live")
	if err != nil {
		return nil, err
	}

	balance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "model_mass_balance_kg",
		Help: "Mass balance quantities per realization, in kilograms.",
	}, []string{"realization", "quantity"})
	balance, err = registerGaugeVec(reg, balance, "model_mass_balance_kg")
	if err != nil {
		return nil, err
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "model_runs_completed_total",
		Help: "Number of model runs that reached their last step.",
	}), "model_runs_completed_total")
	if err != nil {
		return nil, err
	}

	return &ModelCollector{
		gatherer:         gatherer,
		StepsTotal:       steps,
		StepDuration:     stepDuration,
		CurrentStep:      current,
		ElementsReleased: released,
		ElementsLive:     live,
		MassBalance:      balance,
		RunsCompleted:    runs,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ModelCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes the collector's registry over HTTP.
func (c *ModelCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveStep records one completed step.
func (c *ModelCollector) ObserveStep(step int, elapsed time.Duration, released, live int) {
	if c == nil {
		return
	}
	c.StepsTotal.Inc()
	c.StepDuration.Observe(elapsed.Seconds())
	c.CurrentStep.Set(float64(step))
	c.ElementsReleased.Add(float64(released))
	c.ElementsLive.Set(float64(live))
}

// ObserveMassBalance publishes a realization's mass balance.
func (c *ModelCollector) ObserveMassBalance(uncertain bool, balance map[string]float64) {
	if c == nil || c.MassBalance == nil {
		return
	}
	realization := "forecast"
	if uncertain {
		realization = "uncertain"
	}
	for quantity, kg := range balance {
		c.MassBalance.WithLabelValues(realization, quantity).Set(kg)
	}
}

// ObserveRunComplete counts a finished run.
func (c *ModelCollector) ObserveRunComplete() {
	if c == nil || c.RunsCompleted == nil {
		return
	}
	c.RunsCompleted.Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
