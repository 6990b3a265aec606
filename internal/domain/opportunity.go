package domain

import (
	"sort"
	"strings"
	"time"
)

// OpportunityType tags the two detection variants. The set is closed: every
// opportunity is either a cross-market price discrepancy or an intra-market
// conversion cycle.
type OpportunityType string

const (
	OpportunityCrossMarket OpportunityType = "CROSS_MARKET"
	OpportunityCycle       OpportunityType = "CYCLE"
)

// Opportunity is the canonical, immutable record of one detected price
// discrepancy. Instances are created fresh each scan cycle and handed to the
// consumer; they are never mutated afterwards.
//
// Invariants: NetProfitPct == GrossSpreadPct - EstimatedFeesPct, and
// Confidence is within [0,100].
type Opportunity struct {
	ID               string          `json:"id"` // UUID of this detection record
	IdentityKey      string          `json:"identity_key"`
	Type             OpportunityType `json:"type"`
	Symbols          []string        `json:"symbols"`
	Markets          []string        `json:"markets"`
	GrossSpreadPct   float64         `json:"gross_spread_pct"`
	EstimatedFeesPct float64         `json:"estimated_fees_pct"`
	NetProfitPct     float64         `json:"net_profit_pct"`
	Confidence       int             `json:"confidence"`
	VolumeUSD        float64         `json:"volume_usd"`
	DetectedAt       time.Time       `json:"detected_at"`
}

// CrossMarketIdentity builds the identity key for a cross-market opportunity.
// Direction is part of the identity: buying on X and selling on Y is a
// different opportunity than the reverse.
func CrossMarketIdentity(symbol, buyMarket, sellMarket string) string {
	return strings.Join([]string{
		string(OpportunityCrossMarket), symbol, buyMarket + ">" + sellMarket,
	}, "|")
}

// CycleIdentity builds the identity key for an intra-market conversion cycle.
// The currency path is canonicalized by rotating it to start at the
// lexicographically smallest currency, so all rotations of the same cycle
// (A→B→C→A, B→C→A→B, C→A→B→C) produce the same key. Direction is preserved:
// the reversed cycle trades different sides of each book and is a distinct
// opportunity.
func CycleIdentity(market string, currencies []string) string {
	canon := CanonicalCycle(currencies)
	return strings.Join([]string{
		string(OpportunityCycle), market, strings.Join(canon, ">"),
	}, "|")
}

// CanonicalCycle rotates a cycle's currency path so it starts at the
// lexicographically smallest currency. The input is the open path (each
// currency once, without repeating the start at the end).
func CanonicalCycle(currencies []string) []string {
	if len(currencies) == 0 {
		return nil
	}
	min := 0
	for i, c := range currencies {
		if c < currencies[min] {
			min = i
		}
	}
	out := make([]string, 0, len(currencies))
	out = append(out, currencies[min:]...)
	out = append(out, currencies[:min]...)
	return out
}

// SortOpportunities orders opportunities the way they are reported: net
// profit descending, ties broken by confidence descending, then by earliest
// detection time.
func SortOpportunities(opps []Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].NetProfitPct != opps[j].NetProfitPct {
			return opps[i].NetProfitPct > opps[j].NetProfitPct
		}
		if opps[i].Confidence != opps[j].Confidence {
			return opps[i].Confidence > opps[j].Confidence
		}
		return opps[i].DetectedAt.Before(opps[j].DetectedAt)
	})
}
