// Package engine owns one recurring scan per running agent: read fresh
// ledger state, fetch prices, score every open market, and hand qualifying
// signals to the dispatcher.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"BeliefSentinel/internal/audit"
	"BeliefSentinel/internal/dispatch"
	"BeliefSentinel/internal/ledger"
	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/oracle"

	"github.com/robfig/cron/v3"
)

// at most this many new recommendations per cycle per agent
const maxRecsPerScan = 10

// priceHistoryLen bounds the rolling per-source sample buffer.
const priceHistoryLen = 20

// agentState is the engine's mutable per-agent runtime state.
type agentState struct {
	profile  model.AgentProfile
	entryID  cron.EntryID
	scanning atomic.Bool // single-flight guard; cron does not prevent overlap
}

// Engine schedules and runs agent scan cycles.
type Engine struct {
	cron       *cron.Cron
	ledger     ledger.Client
	oracle     oracle.PriceFeed
	dispatcher *dispatch.Dispatcher
	auditLog   *audit.Log
	activity   *audit.Feed
	interval   time.Duration
	ctx        context.Context

	mu     sync.Mutex
	agents map[uint64]*agentState

	histMu  sync.Mutex
	history map[int][]float64 // sourceID -> rolling price samples
}

// New creates an Engine. ctx bounds all in-flight work; cancel it on
// shutdown.
func New(ctx context.Context, lc ledger.Client, feed oracle.PriceFeed,
	d *dispatch.Dispatcher, al *audit.Log, af *audit.Feed, interval time.Duration) *Engine {
	return &Engine{
		cron:       cron.New(cron.WithSeconds()),
		ledger:     lc,
		oracle:     feed,
		dispatcher: d,
		auditLog:   al,
		activity:   af,
		interval:   interval,
		ctx:        ctx,
		agents:     make(map[uint64]*agentState),
		history:    make(map[int][]float64),
	}
}

// Run starts the underlying scheduler.
func (e *Engine) Run() {
	e.cron.Start()
	log.Println("[INFO] engine scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs to finish.
func (e *Engine) Shutdown() {
	ctx := e.cron.Stop()
	<-ctx.Done()
	log.Println("[INFO] engine scheduler stopped")
}

// StartAgent registers the agent's profile, performs one immediate scan, and
// schedules a recurring scan. Idempotent: restarting a running agent replaces
// its profile and timer. The existing state is reused so the single-flight
// guard keeps covering a cycle still in flight across the restart.
func (e *Engine) StartAgent(agentID uint64, profile model.AgentProfile) error {
	e.mu.Lock()
	state, ok := e.agents[agentID]
	if ok {
		e.cron.Remove(state.entryID)
		state.profile = profile
	} else {
		state = &agentState{profile: profile}
		e.agents[agentID] = state
	}

	entryID, err := e.cron.AddFunc(fmt.Sprintf("@every %s", e.interval), func() {
		e.scan(agentID)
	})
	if err != nil {
		delete(e.agents, agentID)
		e.mu.Unlock()
		return fmt.Errorf("schedule agent %d: %w", agentID, err)
	}
	state.entryID = entryID
	e.mu.Unlock()

	e.auditLog.Record(agentID, model.AuditStarted, fmt.Sprintf("Agent %q started", profile.Name), "", nil)
	e.activity.Add(agentID, profile.Name,
		fmt.Sprintf("Started [%s/%s]", profile.Personality, execMode(profile.AutoExecute)),
		model.ActivityInfo)

	go e.scan(agentID)
	return nil
}

// StopAgent cancels the agent's recurring scan. No-op if already stopped.
// An in-flight cycle is not interrupted; it observes the cancelled state at
// its next step.
func (e *Engine) StopAgent(agentID uint64) {
	e.mu.Lock()
	state, ok := e.agents[agentID]
	if ok {
		e.cron.Remove(state.entryID)
		delete(e.agents, agentID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	e.auditLog.Record(agentID, model.AuditStopped, fmt.Sprintf("Agent %q stopped", state.profile.Name), "", nil)
	e.activity.Add(agentID, state.profile.Name, "Stopped", model.ActivityInfo)
}

// haltAgent is the engine-initiated stop for zero-balance auto agents.
func (e *Engine) haltAgent(agentID uint64, profile model.AgentProfile) {
	e.mu.Lock()
	if state, ok := e.agents[agentID]; ok {
		e.cron.Remove(state.entryID)
		delete(e.agents, agentID)
	}
	e.mu.Unlock()

	e.activity.Add(agentID, profile.Name,
		"Vault balance is 0 USDC. Stopping agent. Fund the agent vault to resume.",
		model.ActivityWarning)
	e.auditLog.Record(agentID, model.AuditStopped, "Agent stopped: vault empty. Fund to resume.", "", nil)
}

// Running reports whether the agent has a scheduled scan.
func (e *Engine) Running(agentID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.agents[agentID]
	return ok
}

// RunningAgents returns the ids of all scheduled agents.
func (e *Engine) RunningAgents() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint64, 0, len(e.agents))
	for id := range e.agents {
		ids = append(ids, id)
	}
	return ids
}

// pushPrice appends a sample to the source's rolling history.
func (e *Engine) pushPrice(sourceID int, price float64) {
	e.histMu.Lock()
	defer e.histMu.Unlock()
	hist := append(e.history[sourceID], price)
	if len(hist) > priceHistoryLen {
		hist = hist[len(hist)-priceHistoryLen:]
	}
	e.history[sourceID] = hist
}

// historySnapshot copies the source's rolling history for a pure analyze
// call.
func (e *Engine) historySnapshot(sourceID int) []float64 {
	e.histMu.Lock()
	defer e.histMu.Unlock()
	return append([]float64(nil), e.history[sourceID]...)
}

func execMode(auto bool) string {
	if auto {
		return "auto"
	}
	return "manual"
}
