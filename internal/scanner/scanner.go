// Package scanner implements the detection engine: a cross-market detector, an
// intra-market cycle detector, the confidence scorer, and the orchestrator
// that drives one scan cycle end to end.
package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/acremel/arbscan/internal/domain"
)

// Snapshot is the market data set for one scan cycle. It is assembled by the
// orchestrator from whatever subset of markets responded and is read-only for
// the detectors.
type Snapshot struct {
	// Tickers maps market -> symbol -> ticker. Only validated tickers are
	// present; markets that failed to respond are absent entirely.
	Tickers map[string]map[string]domain.Ticker
	// Fees maps market -> fee schedule.
	Fees map[string]domain.FeeSchedule
	// TakenAt is the cycle's detection timestamp. Detectors stamp
	// opportunities with this time so detection stays a pure function of the
	// snapshot.
	TakenAt time.Time
}

// Detector is the shared capability of the two detection variants: given a
// market snapshot, produce zero or more opportunities. Detection is pure:
// identical snapshots yield identical results, including order.
type Detector interface {
	Name() string
	Detect(ctx context.Context, snap Snapshot) []domain.Opportunity
}

// Markets returns the snapshot's market names in sorted order.
func (s Snapshot) Markets() []string {
	out := make([]string, 0, len(s.Tickers))
	for m := range s.Tickers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Ticker looks up one symbol's ticker on one market.
func (s Snapshot) Ticker(market, symbol string) (domain.Ticker, bool) {
	t, ok := s.Tickers[market][symbol]
	return t, ok
}
