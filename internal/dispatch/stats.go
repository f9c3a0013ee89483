package dispatch

import (
	"log"
	"sync"

	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/store"
)

const statsKey = "agent_local_data"

// StatsBook tracks rolling per-agent counters, persisted as one map in the
// encrypted store. In-memory state is authoritative; persistence failures are
// logged and dropped.
type StatsBook struct {
	store *store.Store

	mu    sync.Mutex
	stats map[uint64]model.AgentStats
}

// NewStatsBook loads persisted stats from the encrypted store.
func NewStatsBook(s *store.Store) *StatsBook {
	sb := &StatsBook{store: s, stats: make(map[uint64]model.AgentStats)}
	var loaded map[uint64]model.AgentStats
	if s.GetItem(statsKey, &loaded) && loaded != nil {
		sb.stats = loaded
	}
	return sb
}

// Get returns the agent's stats (zero value if none recorded yet).
func (sb *StatsBook) Get(agentID uint64) model.AgentStats {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.stats[agentID]
}

// Update applies fn to the agent's stats and persists the book. The write
// happens under the book mutex so a slower older snapshot can never overwrite
// a newer one.
func (sb *StatsBook) Update(agentID uint64, fn func(*model.AgentStats)) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	s := sb.stats[agentID]
	fn(&s)
	sb.stats[agentID] = s
	if err := sb.store.SetItem(statsKey, sb.stats); err != nil {
		log.Printf("[ERROR] persist agent stats: %v", err)
	}
}

// RecordScan folds one completed scan into the agent's stats. avgConfidence
// is a running mean weighted by recommendation count.
func (sb *StatsBook) RecordScan(agentID uint64, newRecs []model.Recommendation) {
	sb.Update(agentID, func(s *model.AgentStats) {
		s.TotalScans++
		if len(newRecs) == 0 {
			return
		}
		var confSum float64
		executed := 0
		for _, r := range newRecs {
			confSum += float64(r.Confidence)
			if r.Status == model.RecExecuted {
				executed++
			}
		}
		prevCount := s.TotalRecommendations
		newCount := prevCount + len(newRecs)
		s.AvgConfidence = (s.AvgConfidence*float64(prevCount) + confSum) / float64(newCount)
		s.TotalRecommendations = newCount
		s.TotalExecuted += executed
	})
}
