// Package audit keeps the durable audit trail and the ephemeral activity
// feed. Every engine action lands in one or both.
package audit

import (
	"log"
	"sync"
	"time"

	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/store"

	"github.com/google/uuid"
)

const (
	auditKey   = "audit_trail"
	maxEntries = 500
)

// Log is the durable append-only audit trail, newest first, capped to the
// most recent 500 entries. In-memory state is authoritative for the session;
// persistence failures are logged and dropped.
type Log struct {
	store *store.Store

	mu      sync.Mutex
	entries []model.AuditEntry
}

// NewLog loads the persisted trail from the encrypted store.
func NewLog(s *store.Store) *Log {
	l := &Log{store: s}
	var entries []model.AuditEntry
	if s.GetItem(auditKey, &entries) {
		l.entries = entries
	}
	return l
}

// Record prepends an entry, truncates to the cap, and persists the result.
// The write happens under the log mutex so persisted snapshots always land in
// the order they were taken; a slower older snapshot can never overwrite a
// newer one.
func (l *Log) Record(agentID uint64, action model.AuditAction, summary, details string, metadata map[string]any) {
	entry := model.AuditEntry{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Timestamp: time.Now(),
		Action:    action,
		Summary:   summary,
		Details:   details,
		Metadata:  metadata,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]model.AuditEntry{entry}, l.entries...)
	if len(l.entries) > maxEntries {
		l.entries = l.entries[:maxEntries]
	}
	if err := l.store.SetItem(auditKey, l.entries); err != nil {
		log.Printf("[ERROR] persist audit trail: %v", err)
	}
}

// Entries returns a copy of the trail, newest first.
func (l *Log) Entries() []model.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EntriesFor returns the trail filtered to one agent, newest first.
func (l *Log) EntriesFor(agentID uint64) []model.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range l.entries {
		if e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out
}
