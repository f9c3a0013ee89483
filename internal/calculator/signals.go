// Package calculator holds the pure signal-component math. Every function is
// deterministic given its inputs.
package calculator

import "time"

// PriceDistance returns the percentage distance of current from target.
// Returns 0 when target is 0.
func PriceDistance(current, target float64) float64 {
	if target == 0 {
		return 0
	}
	return (current - target) / target * 100
}

// Momentum measures recent price velocity from the rolling history, scaled
// by 10x and clamped to [-100, 100]. Requires at least 3 samples; uses the
// last 5.
func Momentum(history []float64) float64 {
	if len(history) < 3 {
		return 0
	}
	recent := history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	oldest := recent[0]
	newest := recent[len(recent)-1]
	if oldest == 0 {
		// Any move off a zero base saturates the scale.
		if newest > 0 {
			return 100
		}
		return 0
	}
	return clamp((newest-oldest)/oldest*100*10, -100, 100)
}

// TimeUrgency returns how far along a rolling 24h-plus window the market is
// toward its resolution time, as a percentage clamped to [0, 100].
func TimeUrgency(resolution, now time.Time) float64 {
	timeLeft := resolution.Sub(now).Seconds()
	totalDuration := resolution.Sub(now.Add(-24 * time.Hour)).Seconds()
	if totalDuration < 1 {
		totalDuration = 1
	}
	return clamp((1-timeLeft/totalDuration)*100, 0, 100)
}

// PoolImbalance returns the yes-vs-no pool skew as a percentage in
// [-100, 100]. Returns 0 for empty pools.
func PoolImbalance(yesPool, noPool float64) float64 {
	total := yesPool + noPool
	if total <= 0 {
		return 0
	}
	return (yesPool - noPool) / total * 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
