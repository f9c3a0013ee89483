package audit

import (
	"sync"
	"time"

	"BeliefSentinel/internal/model"
)

const maxActivity = 200

// Feed is the in-memory activity ring mirroring the audit stream for
// low-latency display. Never persisted, lost on restart.
type Feed struct {
	mu      sync.Mutex
	entries []model.ActivityEntry
}

// NewFeed returns an empty activity feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Add prepends an activity line, evicting the oldest past the cap.
func (f *Feed) Add(agentID uint64, agentName, message string, kind model.ActivityKind) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = append([]model.ActivityEntry{{
		Timestamp: time.Now(),
		AgentID:   agentID,
		AgentName: agentName,
		Message:   message,
		Kind:      kind,
	}}, f.entries...)
	if len(f.entries) > maxActivity {
		f.entries = f.entries[:maxActivity]
	}
}

// Recent returns up to n entries, newest first.
func (f *Feed) Recent(n int) []model.ActivityEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n > len(f.entries) {
		n = len(f.entries)
	}
	out := make([]model.ActivityEntry, n)
	copy(out, f.entries[:n])
	return out
}
