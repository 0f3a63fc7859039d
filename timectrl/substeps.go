package timectrl

import "time"

// Substep is one weathering integration interval.
type Substep struct {
	Start    time.Time
	Duration time.Duration
}

// SplitSubsteps divides a time step into n sub-intervals on whole-second
// boundaries. Remainder seconds from the integer division form one extra
// trailing substep, so the durations always sum to timeStep and none is
// empty.
func SplitSubsteps(start time.Time, timeStep time.Duration, n int) []Substep {
	if timeStep <= 0 {
		return nil
	}
	sub := (timeStep / time.Second / time.Duration(max(n, 1))) * time.Second
	if n <= 1 || sub == 0 {
		return []Substep{{Start: start, Duration: timeStep}}
	}

	out := make([]Substep, 0, n+1)
	var offset time.Duration
	for range n {
		out = append(out, Substep{Start: start.Add(offset), Duration: sub})
		offset += sub
	}
	if rem := timeStep - offset; rem > 0 {
		out = append(out, Substep{Start: start.Add(offset), Duration: rem})
	}
	return out
}
