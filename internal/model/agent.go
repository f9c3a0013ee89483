package model

import "time"

// Personality selects the parameter set used when scoring markets.
type Personality string

const (
	PersonalityConservative Personality = "conservative"
	PersonalityBalanced     Personality = "balanced"
	PersonalityAggressive   Personality = "aggressive"
	PersonalityContrarian   Personality = "contrarian"
)

// PersonalityFromIndex maps the ledger's numeric personality field.
var PersonalityFromIndex = map[int]Personality{
	0: PersonalityConservative,
	1: PersonalityBalanced,
	2: PersonalityAggressive,
	3: PersonalityContrarian,
}

// AgentProfile is a per-scan snapshot of an agent's guardrails. The ledger is
// the source of truth; the engine treats it as read-only input refreshed
// every cycle.
type AgentProfile struct {
	ID                  uint64
	Owner               string
	Delegate            string
	Name                string
	Personality         Personality
	Balance             float64 // vault balance, USDC
	MaxStakePerMarket   float64
	MaxTotalExposure    float64
	CurrentExposure     float64
	AllowedAssetTypes   int // bitmask of Asset* constants
	ConfidenceThreshold int // 0-100
	AutoExecute         bool
	Active              bool
}

// AgentStats tracks rolling per-agent counters, persisted across restarts.
type AgentStats struct {
	TotalScans           int     `json:"total_scans"`
	TotalRecommendations int     `json:"total_recommendations"`
	TotalExecuted        int     `json:"total_executed"`
	TotalApproved        int     `json:"total_approved"`
	TotalRejected        int     `json:"total_rejected"`
	AvgConfidence        float64 `json:"avg_confidence"`
}

// DelegateWallet is an agent's stored signing keypair. At most one exists per
// agent id.
type DelegateWallet struct {
	AgentID    uint64    `json:"agent_id"`
	PrivateKey string    `json:"private_key"` // hex-encoded ed25519 seed+pub
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}
