// Package ledger adapts the external settlement ledger. The engine only
// reads market/agent state through it and, on the execution path, submits
// delegate-signed positions. Market lifecycle, pool accounting, and payouts
// live on the other side of this boundary.
package ledger

import (
	"context"
	"crypto/ed25519"

	"BeliefSentinel/internal/model"
)

// Reader is the read-only ledger surface consumed every scan cycle.
type Reader interface {
	MarketCount(ctx context.Context) (uint64, error)
	Market(ctx context.Context, id uint64) (model.MarketView, error)
	Agent(ctx context.Context, id uint64) (model.AgentProfile, error)
	AgentPositionIDs(ctx context.Context, agentID uint64) ([]uint64, error)
	Position(ctx context.Context, id uint64) (model.PositionView, error)
	OwnerAgentIDs(ctx context.Context, owner string) ([]uint64, error)
}

// Writer is the execution-path surface. Failures are non-retryable for that
// attempt.
type Writer interface {
	SubmitPositionForAgent(ctx context.Context, signer ed25519.PrivateKey,
		agentID, marketID uint64, encryptedDirection []byte, stake float64) (string, error)
}

// Client is the full ledger adapter.
type Client interface {
	Reader
	Writer
}
