package eta

import "math"

const (
	DefaultWindowSize     = 20
	DefaultServiceMinutes = 15
	DefaultMaxMinutes     = 120
)

// Tracker holds the policy for folding completed-service durations into a
// server's moving average.
type Tracker struct {
	WindowSize     int // Durations retained per server
	DefaultMinutes int // Average reported while no history exists
	MaxMinutes     int // Exclusive upper bound for an admissible duration
}

func NewTracker(windowSize, defaultMinutes, maxMinutes int) Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if defaultMinutes <= 0 {
		defaultMinutes = DefaultServiceMinutes
	}
	if maxMinutes <= 0 {
		maxMinutes = DefaultMaxMinutes
	}
	return Tracker{WindowSize: windowSize, DefaultMinutes: defaultMinutes, MaxMinutes: maxMinutes}
}

// Admits reports whether a measured duration may feed the average.
// Non-positive and overly long durations come from clock skew or stale sessions.
func (t Tracker) Admits(minutes int) bool {
	return minutes > 0 && minutes < t.MaxMinutes
}

// Record appends minutes to the window, evicting the oldest samples beyond
// WindowSize, and returns the new window with its rounded average.
// An inadmissible duration leaves the window untouched.
func (t Tracker) Record(window []int, minutes int) ([]int, int, bool) {
	if !t.Admits(minutes) {
		return window, t.Average(window), false
	}
	next := make([]int, 0, len(window)+1)
	next = append(next, window...)
	next = append(next, minutes)
	if over := len(next) - t.WindowSize; over > 0 {
		next = next[over:]
	}
	return next, t.Average(next), true
}

// Average is round(sum/count) over the window, or DefaultMinutes when empty.
func (t Tracker) Average(window []int) int {
	if len(window) == 0 {
		return t.DefaultMinutes
	}
	sum := 0
	for _, m := range window {
		sum += m
	}
	return int(math.Round(float64(sum) / float64(len(window))))
}
