package ledger

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"BeliefSentinel/internal/model"
)

// Mock is an in-memory ledger for development and testing.
type Mock struct {
	mu        sync.Mutex
	Agents    map[uint64]model.AgentProfile
	Markets   []model.MarketView
	Positions map[uint64]model.PositionView
	ByAgent   map[uint64][]uint64 // agentID -> position ids

	SubmitErr   error
	Submissions []MockSubmission
	nextTx      int
}

// MockSubmission records one SubmitPositionForAgent call.
type MockSubmission struct {
	AgentID  uint64
	MarketID uint64
	Stake    float64
}

func NewMock() *Mock {
	return &Mock{
		Agents:    make(map[uint64]model.AgentProfile),
		Positions: make(map[uint64]model.PositionView),
		ByAgent:   make(map[uint64][]uint64),
	}
}

func (m *Mock) MarketCount(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.Markets)), nil
}

func (m *Mock) Market(_ context.Context, id uint64) (model.MarketView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id >= uint64(len(m.Markets)) {
		return model.MarketView{}, fmt.Errorf("no market %d", id)
	}
	return m.Markets[id], nil
}

func (m *Mock) Agent(_ context.Context, id uint64) (model.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Agents[id]
	if !ok {
		return model.AgentProfile{}, fmt.Errorf("no agent %d", id)
	}
	return a, nil
}

func (m *Mock) AgentPositionIDs(_ context.Context, agentID uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.ByAgent[agentID]...), nil
}

func (m *Mock) Position(_ context.Context, id uint64) (model.PositionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Positions[id]
	if !ok {
		return model.PositionView{}, fmt.Errorf("no position %d", id)
	}
	return p, nil
}

func (m *Mock) OwnerAgentIDs(_ context.Context, owner string) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint64
	for id, a := range m.Agents {
		if a.Owner == owner {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Mock) SubmitPositionForAgent(_ context.Context, _ ed25519.PrivateKey,
	agentID, marketID uint64, _ []byte, stake float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	m.Submissions = append(m.Submissions, MockSubmission{AgentID: agentID, MarketID: marketID, Stake: stake})
	m.nextTx++
	return fmt.Sprintf("0xmock%06d", m.nextTx), nil
}

// AddActivePosition registers an ACTIVE position for duplicate-avoidance
// checks in tests.
func (m *Mock) AddActivePosition(agentID, posID, marketID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Positions[posID] = model.PositionView{ID: posID, MarketID: marketID, Status: model.PositionActive}
	m.ByAgent[agentID] = append(m.ByAgent[agentID], posID)
}
