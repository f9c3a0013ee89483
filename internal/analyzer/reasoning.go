package analyzer

import (
	"fmt"
	"math"
	"strings"

	"BeliefSentinel/internal/model"
)

// Reasoning renders a human-readable explanation of a scored signal.
func Reasoning(symbol string, signals model.Signal, personality model.Personality, direction bool) string {
	var parts []string

	if math.Abs(signals.PriceDistance) > 3 {
		side := "below"
		if signals.PriceDistance > 0 {
			side = "above"
		}
		parts = append(parts, fmt.Sprintf("Price is %.1f%% %s target", math.Abs(signals.PriceDistance), side))
	} else {
		parts = append(parts, fmt.Sprintf("Price is near target (%.1f%% away)", signals.PriceDistance))
	}

	if math.Abs(signals.Momentum) > 20 {
		trend := "downward"
		if signals.Momentum > 0 {
			trend = "upward"
		}
		parts = append(parts, fmt.Sprintf("Strong %s momentum detected", trend))
	}

	if signals.TimeUrgency > 70 {
		parts = append(parts, "Market nearing resolution")
	}

	if math.Abs(signals.PoolImbalance) > 30 && personality == model.PersonalityContrarian {
		side := "NO"
		if signals.PoolImbalance > 0 {
			side = "YES"
		}
		parts = append(parts, fmt.Sprintf("Pool heavily %s-sided, contrarian opportunity", side))
	}

	dir := "NO"
	if direction {
		dir = "YES"
	}
	return fmt.Sprintf("%s on %s. %s.", dir, symbol, strings.Join(parts, ". "))
}
