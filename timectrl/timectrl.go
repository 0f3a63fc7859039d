package timectrl

import (
	"sync"
	"time"
)

// SimClock is read-only access to model time for components that should not
// drive it.
type SimClock interface {
	// Now returns the current model time.
	Now() time.Time
}

// TimeController owns the run clock: start time, duration, time step and the
// current step index. It is the only thing that advances model time.
type TimeController struct {
	mu sync.RWMutex

	startTime time.Time
	duration  time.Duration
	timeStep  time.Duration

	// currentStep is -1 before the first step.
	currentStep int

	listeners []func(step int, t time.Time)
}

// NewTimeController constructs a rewound controller. A zero timeStep means
// "not yet chosen".
func NewTimeController(start time.Time, duration, timeStep time.Duration) *TimeController {
	return &TimeController{
		startTime:   start,
		duration:    duration,
		timeStep:    timeStep,
		currentStep: -1,
	}
}

func (tc *TimeController) StartTime() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.startTime
}

func (tc *TimeController) Duration() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.duration
}

func (tc *TimeController) TimeStep() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.timeStep
}

func (tc *TimeController) SetStartTime(t time.Time) {
	tc.mu.Lock()
	tc.startTime = t
	tc.mu.Unlock()
}

func (tc *TimeController) SetDuration(d time.Duration) {
	tc.mu.Lock()
	tc.duration = d
	tc.mu.Unlock()
}

func (tc *TimeController) SetTimeStep(d time.Duration) {
	tc.mu.Lock()
	tc.timeStep = d
	tc.mu.Unlock()
}

// NumTimeSteps is 1 + floor(duration/time_step); the extra step is step 0.
// It is zero while no time step has been chosen.
func (tc *TimeController) NumTimeSteps() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return numTimeSteps(tc.duration, tc.timeStep)
}

func numTimeSteps(duration, timeStep time.Duration) int {
	if timeStep <= 0 {
		return 0
	}
	return 1 + int(duration/timeStep)
}

// CurrentStep returns the index of the last completed step, -1 when rewound.
func (tc *TimeController) CurrentStep() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentStep
}

// TimeAt returns the model time of step.
func (tc *TimeController) TimeAt(step int) time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.startTime.Add(time.Duration(step) * tc.timeStep)
}

// Now returns the model time of the current step, or the start time when
// rewound. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.currentStep < 0 {
		return tc.startTime
	}
	return tc.startTime.Add(time.Duration(tc.currentStep) * tc.timeStep)
}

// Advance moves to the next step and notifies listeners with its index and
// model time.
func (tc *TimeController) Advance() (int, time.Time) {
	tc.mu.Lock()
	tc.currentStep++
	step := tc.currentStep
	now := tc.startTime.Add(time.Duration(step) * tc.timeStep)
	listeners := append([]func(int, time.Time){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(step, now)
	}
	return step, now
}

// Reset returns the controller to the rewound state.
func (tc *TimeController) Reset() {
	tc.mu.Lock()
	tc.currentStep = -1
	tc.mu.Unlock()
}

// AddListener registers a callback invoked on every Advance.
func (tc *TimeController) AddListener(fn func(step int, t time.Time)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}
