package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// EventOpportunity is the event type for arbitrage opportunity alerts.
const EventOpportunity = "opportunity"

// OpportunityAlert formats and dispatches an alert for the opportunities in
// one scan pass that cleared the notification threshold.
func (n *Notifier) OpportunityAlert(ctx context.Context, symbol string, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	title := fmt.Sprintf("Arbitrage: %s (%d opportunities)", symbol, len(opps))

	var b strings.Builder
	for i, opp := range opps {
		if i >= 5 {
			fmt.Fprintf(&b, "… and %d more\n", len(opps)-5)
			break
		}
		fmt.Fprintf(&b, "%s → %s: buy %.6g / sell %.6g, +%.2f%% (risk %.1f, %s)\n",
			opp.BuySource, opp.SellSource,
			opp.BuyPrice, opp.SellPrice, opp.ProfitPct,
			opp.RiskScore, opp.RiskLevel())
		if !opp.NetworkCompatible {
			b.WriteString("  no common transfer network\n")
		} else if opp.UnifiedNetwork != "" {
			fmt.Fprintf(&b, "  via %s, fee %.4g, ~%ds\n",
				opp.UnifiedNetwork, opp.TransferFee, opp.EstimatedTimeSeconds)
		}
	}
	if opps[0].Quality == domain.QualitySynthetic {
		b.WriteString("(synthetic data, not actionable)\n")
	}

	return n.Notify(ctx, Message{
		Event: EventOpportunity,
		Title: title,
		Body:  b.String(),
	})
}
