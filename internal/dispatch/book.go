package dispatch

import (
	"sync"

	"BeliefSentinel/internal/model"
)

// keep at most this many recommendations in memory, newest first
const maxRecommendations = 100

// Book is the in-memory recommendation list. Terminal status transitions are
// final; entries are never revisited after approve/reject/execute.
type Book struct {
	mu   sync.Mutex
	recs []model.Recommendation
}

// NewBook returns an empty recommendation book.
func NewBook() *Book {
	return &Book{}
}

// Add prepends a recommendation, evicting the oldest past the cap.
func (b *Book) Add(rec model.Recommendation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recs = append([]model.Recommendation{rec}, b.recs...)
	if len(b.recs) > maxRecommendations {
		b.recs = b.recs[:maxRecommendations]
	}
}

// Get returns the recommendation with the given id.
func (b *Book) Get(id string) (model.Recommendation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.recs {
		if r.ID == id {
			return r, true
		}
	}
	return model.Recommendation{}, false
}

// HasPending reports whether the agent has a recommendation awaiting
// approval. This is the manual-agent backpressure signal.
func (b *Book) HasPending(agentID uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.recs {
		if r.AgentID == agentID && r.Status == model.RecPending {
			return true
		}
	}
	return false
}

// setStatus transitions a pending recommendation to a terminal status.
// Returns the updated copy, or false if the id is unknown or already
// terminal.
func (b *Book) setStatus(id string, status model.RecommendationStatus, txHash string) (model.Recommendation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.recs {
		if r.ID != id {
			continue
		}
		if r.Status != model.RecPending {
			return model.Recommendation{}, false
		}
		b.recs[i].Status = status
		if txHash != "" {
			b.recs[i].TxHash = txHash
		}
		return b.recs[i], true
	}
	return model.Recommendation{}, false
}

// All returns a copy of the book, newest first.
func (b *Book) All() []model.Recommendation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Recommendation, len(b.recs))
	copy(out, b.recs)
	return out
}
