// Package dispatch routes qualifying signals: auto agents get their position
// signed and submitted via the delegate wallet, manual agents get a pending
// recommendation awaiting approval.
package dispatch

import (
	"context"
	"fmt"

	"BeliefSentinel/internal/audit"
	"BeliefSentinel/internal/encryptor"
	"BeliefSentinel/internal/ledger"
	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/vault"

	"github.com/dustin/go-humanize"
)

// Dispatcher executes or parks recommendations.
type Dispatcher struct {
	Ledger    ledger.Writer
	Vault     *vault.Vault
	Encrypter encryptor.Encrypter
	Audit     *audit.Log
	Activity  *audit.Feed
	Book      *Book
	Stats     *StatsBook
}

func dirLabel(direction bool) string {
	if direction {
		return "YES"
	}
	return "NO"
}

func usdc(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

// Dispatch records the recommendation and, for auto agents, executes it
// immediately. The returned copy carries the final status. Execution
// failures are terminal for the recommendation, not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, profile model.AgentProfile, rec model.Recommendation) model.Recommendation {
	d.Audit.Record(rec.AgentID, model.AuditRecommendation,
		fmt.Sprintf("%s on %s (Market #%d) — %s USDC @ %d%% confidence",
			dirLabel(rec.Direction), rec.Symbol, rec.MarketID, usdc(rec.SuggestedStake), rec.Confidence),
		rec.Reasoning,
		map[string]any{
			"confidence":     rec.Confidence,
			"stake":          rec.SuggestedStake,
			"symbol":         rec.Symbol,
			"market_id":      rec.MarketID,
			"direction":      rec.Direction,
			"current_price":  rec.CurrentPrice,
			"target_price":   rec.TargetPrice,
			"price_distance": rec.Signals.PriceDistance,
			"momentum":       rec.Signals.Momentum,
			"time_urgency":   rec.Signals.TimeUrgency,
			"pool_imbalance": rec.Signals.PoolImbalance,
			"mode":           mode(profile.AutoExecute),
		})

	if profile.AutoExecute {
		rec = d.executeAuto(ctx, profile, rec)
	}

	d.Book.Add(rec)
	return rec
}

func mode(auto bool) string {
	if auto {
		return "auto"
	}
	return "manual"
}

// executeAuto encrypts the direction, signs with the delegate wallet, and
// submits. On any failure the recommendation is still marked executed so it
// never lingers in a pending view; the failure is recorded as an error audit
// entry.
func (d *Dispatcher) executeAuto(ctx context.Context, profile model.AgentProfile, rec model.Recommendation) model.Recommendation {
	d.Activity.Add(rec.AgentID, profile.Name,
		fmt.Sprintf("Auto-executing: %s on Market #%d (%s) for %s USDC via delegate wallet",
			dirLabel(rec.Direction), rec.MarketID, rec.Symbol, usdc(rec.SuggestedStake)),
		model.ActivityExecution)

	txHash, err := d.submit(ctx, rec)
	rec.Status = model.RecExecuted
	if err != nil {
		d.Activity.Add(rec.AgentID, profile.Name,
			fmt.Sprintf("Auto-execute failed for %s Market #%d: %v", rec.Symbol, rec.MarketID, err),
			model.ActivityError)
		d.Audit.Record(rec.AgentID, model.AuditError,
			fmt.Sprintf("Auto-execute failed on %s (Market #%d): %v", rec.Symbol, rec.MarketID, err),
			"", map[string]any{
				"symbol":     rec.Symbol,
				"market_id":  rec.MarketID,
				"direction":  rec.Direction,
				"stake":      rec.SuggestedStake,
				"confidence": rec.Confidence,
			})
		return rec
	}

	rec.TxHash = txHash
	d.Activity.Add(rec.AgentID, profile.Name,
		fmt.Sprintf("Executed: %s on %s @ %s USDC | tx: %s", dirLabel(rec.Direction), rec.Symbol, usdc(rec.SuggestedStake), txHash),
		model.ActivityExecution)
	d.Audit.Record(rec.AgentID, model.AuditExecuted,
		fmt.Sprintf("%s position on %s (Market #%d) — %s USDC",
			dirLabel(rec.Direction), rec.Symbol, rec.MarketID, usdc(rec.SuggestedStake)),
		"", map[string]any{
			"tx_hash":    txHash,
			"symbol":     rec.Symbol,
			"market_id":  rec.MarketID,
			"direction":  rec.Direction,
			"stake":      rec.SuggestedStake,
			"confidence": rec.Confidence,
			"mode":       "auto",
		})
	return rec
}

func (d *Dispatcher) submit(ctx context.Context, rec model.Recommendation) (string, error) {
	encrypted, err := d.Encrypter.EncryptDirection(ctx, rec.Direction)
	if err != nil {
		return "", fmt.Errorf("encrypt direction: %w", err)
	}
	signer, err := d.Vault.Signer(rec.AgentID)
	if err != nil {
		return "", fmt.Errorf("delegate wallet: %w", err)
	}
	txHash, err := d.Ledger.SubmitPositionForAgent(ctx, signer, rec.AgentID, rec.MarketID, encrypted, rec.SuggestedStake)
	if err != nil {
		return "", fmt.Errorf("submit position: %w", err)
	}
	return txHash, nil
}

// Approve transitions a pending manual recommendation to executed. Callers
// invoke it only after confirming the externally signed transaction
// succeeded; this call records the outcome, it does not submit anything.
func (d *Dispatcher) Approve(recID string) error {
	rec, ok := d.Book.setStatus(recID, model.RecExecuted, "")
	if !ok {
		return fmt.Errorf("recommendation %q not pending", recID)
	}
	d.Stats.Update(rec.AgentID, func(s *model.AgentStats) {
		s.TotalApproved++
		s.TotalExecuted++
	})
	d.Audit.Record(rec.AgentID, model.AuditExecuted,
		fmt.Sprintf("%s on Market #%d — %s USDC @ %d%% confidence (manual approve)",
			dirLabel(rec.Direction), rec.MarketID, usdc(rec.SuggestedStake), rec.Confidence),
		"", map[string]any{
			"market_id":  rec.MarketID,
			"direction":  rec.Direction,
			"stake":      rec.SuggestedStake,
			"confidence": rec.Confidence,
			"mode":       "manual",
		})
	return nil
}

// Reject transitions a pending manual recommendation to rejected.
// Irreversible.
func (d *Dispatcher) Reject(recID string) error {
	rec, ok := d.Book.setStatus(recID, model.RecRejected, "")
	if !ok {
		return fmt.Errorf("recommendation %q not pending", recID)
	}
	d.Stats.Update(rec.AgentID, func(s *model.AgentStats) {
		s.TotalRejected++
	})
	d.Audit.Record(rec.AgentID, model.AuditRejected,
		fmt.Sprintf("%s on Market #%d rejected — %s USDC @ %d%% confidence",
			dirLabel(rec.Direction), rec.MarketID, usdc(rec.SuggestedStake), rec.Confidence),
		"", map[string]any{
			"market_id":  rec.MarketID,
			"direction":  rec.Direction,
			"stake":      rec.SuggestedStake,
			"confidence": rec.Confidence,
		})
	return nil
}
