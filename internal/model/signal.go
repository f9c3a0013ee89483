package model

import "time"

// Signal is the per-market breakdown computed fresh every cycle. Never
// persisted.
type Signal struct {
	PriceDistance float64 // % distance of current price from target
	Momentum      float64 // -100..100, recent price velocity
	TimeUrgency   float64 // 0..100, fraction of window elapsed
	PoolImbalance float64 // -100..100, yes-vs-no pool skew
}

// RecommendationStatus is the lifecycle of a recommendation. Terminal states
// (approved, rejected, executed) are final.
type RecommendationStatus string

const (
	RecPending  RecommendationStatus = "pending"
	RecApproved RecommendationStatus = "approved"
	RecRejected RecommendationStatus = "rejected"
	RecExecuted RecommendationStatus = "executed"
)

// Recommendation is a proposed directional stake awaiting either autonomous
// execution or human approval.
type Recommendation struct {
	ID             string
	AgentID        uint64
	MarketID       uint64
	Symbol         string
	Direction      bool // true = YES
	Confidence     int
	SuggestedStake float64
	CurrentPrice   float64
	TargetPrice    float64
	Reasoning      string
	Signals        Signal
	Status         RecommendationStatus
	TxHash         string
	CreatedAt      time.Time
}
