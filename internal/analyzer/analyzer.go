// Package analyzer scores a market against live price signals for one agent
// personality. Analyze is pure: identical inputs always produce identical
// output, with no wall-clock reads beyond the passed Now.
package analyzer

import (
	"math"
	"time"

	"BeliefSentinel/internal/calculator"
	"BeliefSentinel/internal/model"
)

// PersonalityParams tunes how a personality weighs the signals.
type PersonalityParams struct {
	ConfidenceBoost float64
	StakeMultiplier float64
	MomentumWeight  float64
	DistanceWeight  float64
	ContrarianFlip  bool
}

var personalityParams = map[model.Personality]PersonalityParams{
	model.PersonalityConservative: {ConfidenceBoost: -15, StakeMultiplier: 0.25, MomentumWeight: 0.6, DistanceWeight: 0.4},
	model.PersonalityBalanced:     {ConfidenceBoost: 0, StakeMultiplier: 0.5, MomentumWeight: 0.5, DistanceWeight: 0.5},
	model.PersonalityAggressive:   {ConfidenceBoost: 15, StakeMultiplier: 0.8, MomentumWeight: 0.3, DistanceWeight: 0.7},
	model.PersonalityContrarian:   {ConfidenceBoost: 5, StakeMultiplier: 0.4, MomentumWeight: 0.7, DistanceWeight: 0.3, ContrarianFlip: true},
}

// Params returns the fixed parameter set for a personality. Unknown
// personalities fall back to balanced.
func Params(p model.Personality) PersonalityParams {
	if params, ok := personalityParams[p]; ok {
		return params
	}
	return personalityParams[model.PersonalityBalanced]
}

// Input is everything Analyze needs to score one market.
type Input struct {
	Personality    model.Personality
	CurrentPrice   float64
	TargetPrice    float64
	ConditionAbove bool
	ResolutionTime time.Time
	YesPool        float64
	NoPool         float64
	PriceHistory   []float64 // rolling samples for the market's data source
	Now            time.Time
}

// Result is the scored outcome for one market.
type Result struct {
	Signals    model.Signal
	Confidence int  // 0-100
	Direction  bool // true = YES
}

// Analyze scores the market and suggests a direction.
func Analyze(in Input) Result {
	params := Params(in.Personality)

	priceDistance := calculator.PriceDistance(in.CurrentPrice, in.TargetPrice)
	absDistance := math.Abs(priceDistance)
	momentum := calculator.Momentum(in.PriceHistory)
	timeUrgency := calculator.TimeUrgency(in.ResolutionTime, in.Now)
	poolImbalance := calculator.PoolImbalance(in.YesPool, in.NoPool)

	// Direction heuristic: price already past target, or momentum pushing it
	// there.
	var suggestYes bool
	if in.ConditionAbove {
		suggestYes = priceDistance > 0 || momentum > 20
	} else {
		suggestYes = priceDistance < 0 || momentum < -20
	}

	// Contrarian agents bet against a lopsided pool, otherwise invert the
	// heuristic.
	if params.ContrarianFlip {
		switch {
		case poolImbalance > 30:
			suggestYes = false
		case poolImbalance < -30:
			suggestYes = true
		default:
			suggestYes = !suggestYes
		}
	}

	confidence := 50.0
	var distContrib float64
	switch {
	case absDistance > 20:
		distContrib = 35
	case absDistance > 5:
		distContrib = 25
	case absDistance > 2:
		distContrib = 15
	case absDistance > 0.5:
		distContrib = 8
	default:
		distContrib = -5
	}
	confidence += distContrib * params.DistanceWeight

	// Momentum aligned with the suggested direction adds confidence,
	// opposing momentum removes it.
	momDir := momentum
	if !suggestYes {
		momDir = -momentum
	}
	confidence += (momDir / 100) * 30 * params.MomentumWeight

	if timeUrgency > 50 {
		confidence += 5
	}
	if timeUrgency > 70 && momDir > 0 {
		confidence += 10
	}
	if timeUrgency > 90 && momDir < 0 {
		confidence -= 10
	}
	if params.ContrarianFlip && math.Abs(poolImbalance) > 40 {
		confidence += 10
	}
	confidence += params.ConfidenceBoost

	return Result{
		Signals: model.Signal{
			PriceDistance: math.Round(priceDistance*100) / 100,
			Momentum:      math.Round(momentum),
			TimeUrgency:   math.Round(timeUrgency),
			PoolImbalance: math.Round(poolImbalance),
		},
		Confidence: int(math.Max(0, math.Min(100, math.Round(confidence)))),
		Direction:  suggestYes,
	}
}

// SuggestedStake is the personality-scaled stake for a qualifying signal,
// rounded to cents.
func SuggestedStake(maxStakePerMarket float64, p model.Personality) float64 {
	return math.Round(maxStakePerMarket*Params(p).StakeMultiplier*100) / 100
}
