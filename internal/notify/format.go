package notify

import (
	"fmt"
	"strings"

	"github.com/acremel/arbscan/internal/domain"
)

// FormatOpportunity renders a detected opportunity as a notification title
// and body.
func FormatOpportunity(opp domain.Opportunity) (title, message string) {
	switch opp.Type {
	case domain.OpportunityCycle:
		title = fmt.Sprintf("Cycle opportunity on %s", strings.Join(opp.Markets, ", "))
	default:
		title = fmt.Sprintf("Cross-market opportunity %s", strings.Join(opp.Symbols, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Markets: %s\n", strings.Join(opp.Markets, " / "))
	fmt.Fprintf(&b, "Path: %s\n", strings.Join(opp.Symbols, " -> "))
	fmt.Fprintf(&b, "Net profit: %.3f%% (gross %.3f%%, fees %.3f%%)\n",
		opp.NetProfitPct, opp.GrossSpreadPct, opp.EstimatedFeesPct)
	fmt.Fprintf(&b, "Confidence: %d/100\n", opp.Confidence)
	fmt.Fprintf(&b, "Tradable volume: $%.0f\n", opp.VolumeUSD)
	fmt.Fprintf(&b, "Detected: %s", opp.DetectedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	return title, b.String()
}
