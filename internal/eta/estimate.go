// Package eta estimates waiting times from a server's average service duration
// and maintains that average as a moving window of completed services.
package eta

import "math"

// MinVariance is the smallest spread, in minutes, applied around an estimate.
const MinVariance = 2

// Range is an estimated wait in whole minutes.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Estimate projects the wait for the consumer at 1-indexed position.
// Positions <= 0 (not waiting, or being served now) yield {0, 0}.
func Estimate(position, averageServiceMinutes int) Range {
	if position <= 0 {
		return Range{}
	}
	base := position * averageServiceMinutes
	variance := int(math.Round(float64(averageServiceMinutes) * 0.3))
	if variance < MinVariance {
		variance = MinVariance
	}
	low := base - variance
	if low < 0 {
		low = 0
	}
	return Range{Min: low, Max: base + variance}
}
