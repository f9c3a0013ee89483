package model

import "time"

// AuditAction classifies an audit trail entry.
type AuditAction string

const (
	AuditCreated        AuditAction = "created"
	AuditFunded         AuditAction = "funded"
	AuditWithdrawn      AuditAction = "withdrawn"
	AuditStarted        AuditAction = "started"
	AuditStopped        AuditAction = "stopped"
	AuditScan           AuditAction = "scan"
	AuditRecommendation AuditAction = "recommendation"
	AuditApproved       AuditAction = "approved"
	AuditRejected       AuditAction = "rejected"
	AuditExecuted       AuditAction = "executed"
	AuditConfigUpdated  AuditAction = "config_updated"
	AuditError          AuditAction = "error"
)

// AuditEntry is one durable record of an engine action. Newest first in the
// stored list.
type AuditEntry struct {
	ID        string         `json:"id"`
	AgentID   uint64         `json:"agent_id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    AuditAction    `json:"action"`
	Summary   string         `json:"summary"`
	Details   string         `json:"details,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ActivityKind classifies an ephemeral activity line.
type ActivityKind string

const (
	ActivityInfo           ActivityKind = "info"
	ActivityScan           ActivityKind = "scan"
	ActivityRecommendation ActivityKind = "recommendation"
	ActivityExecution      ActivityKind = "execution"
	ActivityWarning        ActivityKind = "warning"
	ActivityError          ActivityKind = "error"
)

// ActivityEntry is one line of the in-memory activity feed. Never persisted.
type ActivityEntry struct {
	Timestamp time.Time
	AgentID   uint64
	AgentName string
	Message   string
	Kind      ActivityKind
}
