package timectrl

import (
	"testing"
	"time"
)

var start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestNumTimeSteps(t *testing.T) {
	cases := []struct {
		duration, step time.Duration
		want           int
	}{
		{time.Hour, 15 * time.Minute, 5},
		{time.Hour, 25 * time.Minute, 3},
		{0, 15 * time.Minute, 1},
		{time.Hour, 0, 0},
		{48 * time.Hour, 900 * time.Second, 193},
	}
	for _, c := range cases {
		tc := NewTimeController(start, c.duration, c.step)
		if got := tc.NumTimeSteps(); got != c.want {
			t.Fatalf("NumTimeSteps(%v, %v) = %d, want %d", c.duration, c.step, got, c.want)
		}
	}
}

func TestAdvanceNotifiesListeners(t *testing.T) {
	tc := NewTimeController(start, time.Hour, 15*time.Minute)
	if got := tc.Now(); !got.Equal(start) {
		t.Fatalf("Now() before first step = %v, want %v", got, start)
	}

	var seen []int
	tc.AddListener(func(step int, _ time.Time) { seen = append(seen, step) })

	tc.Advance()
	step, now := tc.Advance()
	if step != 1 || !now.Equal(start.Add(15*time.Minute)) {
		t.Fatalf("Advance() = (%d, %v), want (1, %v)", step, now, start.Add(15*time.Minute))
	}
	if len(seen) != 2 || seen[1] != 1 {
		t.Fatalf("listener saw %v, want [0 1]", seen)
	}

	tc.Reset()
	if tc.CurrentStep() != -1 {
		t.Fatalf("CurrentStep after Reset = %d, want -1", tc.CurrentStep())
	}
}

func TestSplitSubstepsRemainder(t *testing.T) {
	got := SplitSubsteps(start, 100*time.Second, 3)
	wantOffsets := []time.Duration{0, 33 * time.Second, 66 * time.Second, 99 * time.Second}
	wantDur := []time.Duration{33 * time.Second, 33 * time.Second, 33 * time.Second, time.Second}
	if len(got) != len(wantOffsets) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(wantOffsets), got)
	}
	for i, s := range got {
		if off := s.Start.Sub(start); off != wantOffsets[i] || s.Duration != wantDur[i] {
			t.Fatalf("substep %d = (%v, %v), want (%v, %v)", i, off, s.Duration, wantOffsets[i], wantDur[i])
		}
	}
}

func TestSplitSubstepsSumsToTimeStep(t *testing.T) {
	for _, ts := range []time.Duration{time.Second, 7 * time.Second, 900 * time.Second, 3601 * time.Second, 1500 * time.Millisecond} {
		for n := 1; n <= 13; n++ {
			var sum time.Duration
			for _, s := range SplitSubsteps(start, ts, n) {
				if s.Duration <= 0 {
					t.Fatalf("ts=%v n=%d: non-positive substep %v", ts, n, s.Duration)
				}
				sum += s.Duration
			}
			if sum != ts {
				t.Fatalf("ts=%v n=%d: durations sum to %v", ts, n, sum)
			}
		}
	}
}

func TestSplitSubstepsEvenDivision(t *testing.T) {
	got := SplitSubsteps(start, 900*time.Second, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}
