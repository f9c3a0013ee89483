package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"BeliefSentinel/internal/analyzer"
	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/oracle"

	"github.com/google/uuid"
)

// scan runs one decision cycle for the agent. Errors never escape: anything
// uncaught lands in an error audit entry and the recurring task keeps going.
func (e *Engine) scan(agentID uint64) {
	e.mu.Lock()
	state, ok := e.agents[agentID]
	var profile model.AgentProfile
	if ok {
		profile = state.profile
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	// Single-flight: a cycle that outlives the tick interval must not
	// overlap the next one.
	if !state.scanning.CompareAndSwap(false, true) {
		log.Printf("[INFO] agent %d: previous scan still running, skipping tick", agentID)
		return
	}
	defer state.scanning.Store(false)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] agent %d: scan panic: %v", agentID, r)
			e.auditLog.Record(agentID, model.AuditError, fmt.Sprintf("Scan failed: %v", r), "", nil)
		}
	}()

	ctx, cancel := context.WithTimeout(e.ctx, e.interval)
	defer cancel()

	if err := e.runCycle(ctx, state, profile); err != nil {
		e.activity.Add(agentID, profile.Name, fmt.Sprintf("Error: %v", err), model.ActivityError)
		e.auditLog.Record(agentID, model.AuditError, fmt.Sprintf("Scan failed: %v", err), "", nil)
	}
}

func (e *Engine) runCycle(ctx context.Context, state *agentState, profile model.AgentProfile) error {
	agentID := profile.ID

	// Manual agents wait for the operator: no new scan while a
	// recommendation is pending.
	if !profile.AutoExecute && e.dispatcher.Book.HasPending(agentID) {
		e.activity.Add(agentID, profile.Name,
			"Waiting for pending recommendation to be approved or rejected before scanning.",
			model.ActivityInfo)
		return nil
	}

	// Re-read agent state from the ledger; the profile held between ticks
	// is only a fallback.
	fresh, err := e.ledger.Agent(ctx, agentID)
	if err != nil {
		return fmt.Errorf("read agent: %w", err)
	}
	e.mu.Lock()
	if cur, ok := e.agents[agentID]; ok && cur == state {
		cur.profile = fresh
	}
	e.mu.Unlock()
	profile = fresh

	if !profile.Active {
		return nil
	}

	// Zero-balance auto agents are halted, not retried. Manual agents keep
	// running: the operator stakes from their own wallet.
	if profile.AutoExecute && profile.Balance == 0 {
		e.haltAgent(agentID, profile)
		return nil
	}

	e.activity.Add(agentID, profile.Name,
		fmt.Sprintf("Scanning markets [%s] | Vault: %.2f USDC", profile.Personality, profile.Balance),
		model.ActivityScan)

	marketCount, err := e.ledger.MarketCount(ctx)
	if err != nil {
		return fmt.Errorf("read market count: %w", err)
	}
	// Nothing to score; the cycle ends before it counts as a scan.
	if marketCount == 0 {
		e.activity.Add(agentID, profile.Name, "No markets on the ledger yet.", model.ActivityInfo)
		e.auditLog.Record(agentID, model.AuditScan, "Scan complete: 0 markets", "", nil)
		return nil
	}

	quotes := e.oracle.FetchAllPrices(ctx)
	goodQuotes := 0
	for _, q := range quotes {
		if !q.Success {
			continue
		}
		goodQuotes++
		e.pushPrice(q.SourceID, q.Price)
	}

	activeMarkets := e.activePositionMarkets(ctx, agentID, profile.Name)

	now := time.Now()
	var newRecs []model.Recommendation

	for id := uint64(0); id < marketCount && len(newRecs) < maxRecsPerScan; id++ {
		rec, ok := e.evaluateMarket(ctx, profile, id, quotes, activeMarkets, now)
		if !ok {
			continue
		}
		rec = e.dispatcher.Dispatch(ctx, profile, rec)
		newRecs = append(newRecs, rec)
	}

	e.dispatcher.Stats.RecordScan(agentID, newRecs)
	e.auditLog.Record(agentID, model.AuditScan,
		fmt.Sprintf("Scan complete: %d markets, %d prices, %d signals", marketCount, goodQuotes, len(newRecs)),
		"", nil)
	e.activity.Add(agentID, profile.Name,
		fmt.Sprintf("Scan complete. %d markets checked, %d new signals.", marketCount, len(newRecs)),
		model.ActivityScan)
	return nil
}

// activePositionMarkets snapshots the markets where the agent already holds
// an ACTIVE position. Best effort: a read failure means no duplicates are
// filtered this cycle.
func (e *Engine) activePositionMarkets(ctx context.Context, agentID uint64, agentName string) map[uint64]bool {
	active := make(map[uint64]bool)

	posIDs, err := e.ledger.AgentPositionIDs(ctx, agentID)
	if err != nil {
		log.Printf("[WARN] agent %d: read positions: %v", agentID, err)
		return active
	}
	for _, posID := range posIDs {
		pos, err := e.ledger.Position(ctx, posID)
		if err != nil {
			log.Printf("[WARN] agent %d: read position %d: %v", agentID, posID, err)
			continue
		}
		if pos.Status == model.PositionActive {
			active[pos.MarketID] = true
		}
	}

	if len(active) > 0 {
		e.activity.Add(agentID, agentName,
			fmt.Sprintf("Agent has active positions in %d market(s)", len(active)),
			model.ActivityInfo)
	}
	return active
}

// evaluateMarket runs the eligibility gate and scoring for one market.
// Returns false when the market does not qualify; per-market failures are
// logged and skipped so the loop continues.
func (e *Engine) evaluateMarket(ctx context.Context, profile model.AgentProfile, marketID uint64,
	quotes []oracle.Quote, activeMarkets map[uint64]bool, now time.Time) (model.Recommendation, bool) {

	agentID := profile.ID

	if activeMarkets[marketID] {
		e.activity.Add(agentID, profile.Name,
			fmt.Sprintf("Market #%d: already has active position, skipping.", marketID),
			model.ActivityInfo)
		return model.Recommendation{}, false
	}

	market, err := e.ledger.Market(ctx, marketID)
	if err != nil {
		e.activity.Add(agentID, profile.Name,
			fmt.Sprintf("Error reading market #%d: %v", marketID, err), model.ActivityError)
		return model.Recommendation{}, false
	}

	if market.Status != model.MarketOpen {
		return model.Recommendation{}, false
	}
	if !market.ResolutionTime.After(now) {
		return model.Recommendation{}, false
	}

	source, ok := e.oracle.SourceByID(market.DataSourceID)
	if !ok {
		e.activity.Add(agentID, profile.Name,
			fmt.Sprintf("Market #%d: unknown data source %d, skipping.", marketID, market.DataSourceID),
			model.ActivityWarning)
		return model.Recommendation{}, false
	}

	if source.AssetType&profile.AllowedAssetTypes == 0 {
		return model.Recommendation{}, false
	}

	var price float64
	found := false
	for _, q := range quotes {
		if q.Success && q.SourceID == market.DataSourceID {
			price = q.Price
			found = true
			break
		}
	}
	if !found {
		e.activity.Add(agentID, profile.Name,
			fmt.Sprintf("Market #%d (%s): no price data, skipping.", marketID, source.Symbol),
			model.ActivityWarning)
		return model.Recommendation{}, false
	}

	res := analyzer.Analyze(analyzer.Input{
		Personality:    profile.Personality,
		CurrentPrice:   price,
		TargetPrice:    market.TargetPrice,
		ConditionAbove: market.ConditionAbove,
		ResolutionTime: market.ResolutionTime,
		YesPool:        market.YesPool,
		NoPool:         market.NoPool,
		PriceHistory:   e.historySnapshot(market.DataSourceID),
		Now:            now,
	})

	condLabel := "below"
	if market.ConditionAbove {
		condLabel = "above"
	}
	e.activity.Add(agentID, profile.Name,
		fmt.Sprintf("Market #%d (%s): $%.2f vs target $%.2f (%s) | Dist: %+.1f%% | Mom: %.0f | Urg: %.0f%% | Conf: %d%% [threshold: %d%%]",
			marketID, source.Symbol, price, market.TargetPrice, condLabel,
			res.Signals.PriceDistance, res.Signals.Momentum, res.Signals.TimeUrgency,
			res.Confidence, profile.ConfidenceThreshold),
		model.ActivityInfo)

	if res.Confidence < profile.ConfidenceThreshold {
		e.activity.Add(agentID, profile.Name,
			fmt.Sprintf("Market #%d (%s): Confidence %d%% below threshold %d%%, skipping.",
				marketID, source.Symbol, res.Confidence, profile.ConfidenceThreshold),
			model.ActivityInfo)
		return model.Recommendation{}, false
	}

	stake := analyzer.SuggestedStake(profile.MaxStakePerMarket, profile.Personality)

	// Auto agents stake from the vault; cap to what it holds.
	if profile.AutoExecute {
		if profile.Balance < stake {
			stake = profile.Balance
		}
		if stake <= 0 {
			e.activity.Add(agentID, profile.Name,
				fmt.Sprintf("Signal on %s but vault is empty (%.2f USDC). Fund the agent vault to enable execution.",
					source.Symbol, profile.Balance),
				model.ActivityWarning)
			return model.Recommendation{}, false
		}
	}

	return model.Recommendation{
		ID:             uuid.NewString(),
		AgentID:        agentID,
		MarketID:       marketID,
		Symbol:         source.Symbol,
		Direction:      res.Direction,
		Confidence:     res.Confidence,
		SuggestedStake: stake,
		CurrentPrice:   price,
		TargetPrice:    market.TargetPrice,
		Reasoning:      analyzer.Reasoning(source.Symbol, res.Signals, profile.Personality, res.Direction),
		Signals:        res.Signals,
		Status:         model.RecPending,
		CreatedAt:      now,
	}, true
}
