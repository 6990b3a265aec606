package scanner

import (
	"context"
	"log/slog"
	"sort"

	"github.com/acremel/arbscan/internal/domain"
)

// CycleConfig configures the intra-market cycle detector.
type CycleConfig struct {
	// BaseCurrencies anchor the cycle search: every reported cycle starts and
	// ends at one of these.
	BaseCurrencies []string
	// MinProfitPct is the inclusive net-profit threshold.
	MinProfitPct float64
	// MinVolumeUSD gates every leg's 24h quote volume.
	MinVolumeUSD float64
	Confidence   ConfidenceConfig
}

// Cycle detects profitable 3-leg conversion cycles within a single market.
// The market is modelled as a directed graph: each currency is a node and
// each tradable symbol BASE/QUOTE contributes QUOTE→BASE at 1/ask and
// BASE→QUOTE at bid, both discounted by the market's taker fee. The search
// is fixed at depth 3: profit decays with every added fee-bearing leg and
// the search space grows combinatorially, so deeper cycles are excluded.
type Cycle struct {
	cfg    CycleConfig
	logger *slog.Logger
}

// NewCycle creates the cycle detector.
func NewCycle(cfg CycleConfig, logger *slog.Logger) *Cycle {
	return &Cycle{
		cfg:    cfg,
		logger: logger.With(slog.String("detector", "cycle")),
	}
}

// Name returns the detector identifier.
func (d *Cycle) Name() string { return "cycle" }

// Detect runs the cycle search once per market in the snapshot.
func (d *Cycle) Detect(ctx context.Context, snap Snapshot) []domain.Opportunity {
	var out []domain.Opportunity
	for _, market := range snap.Markets() {
		out = append(out, d.detectMarket(market, snap.Tickers[market], snap.Fees[market], snap)...)
	}
	return out
}

// edge is one directed conversion in the market graph.
type edge struct {
	from, to    string
	symbol      string
	grossRate   float64 // raw conversion rate
	netRate     float64 // grossRate discounted by the taker fee
	quoteVolume float64
}

func (d *Cycle) detectMarket(market string, tickers map[string]domain.Ticker, fees domain.FeeSchedule, snap Snapshot) []domain.Opportunity {
	adj := buildGraph(tickers, fees.TakerFeePct)

	type candidate struct {
		opp  domain.Opportunity
		path []string // open currency path [C, X, Y]
	}

	var accepted []candidate
	seen := make(map[string]bool)

	for _, base := range d.cfg.BaseCurrencies {
		for _, e1 := range adj[base] {
			for _, e2 := range adj[e1.to] {
				if e2.to == base {
					continue
				}
				e3, ok := findEdge(adj[e2.to], base)
				if !ok {
					continue
				}

				identity := domain.CycleIdentity(market, []string{base, e1.to, e2.to})
				if seen[identity] {
					continue
				}

				netMult := e1.netRate * e2.netRate * e3.netRate
				grossMult := e1.grossRate * e2.grossRate * e3.grossRate
				net := (netMult - 1) * 100
				gross := (grossMult - 1) * 100

				if net < d.cfg.MinProfitPct {
					continue
				}
				volume := min(e1.quoteVolume, e2.quoteVolume, e3.quoteVolume)
				if e1.quoteVolume < d.cfg.MinVolumeUSD ||
					e2.quoteVolume < d.cfg.MinVolumeUSD ||
					e3.quoteVolume < d.cfg.MinVolumeUSD {
					continue
				}

				seen[identity] = true
				accepted = append(accepted, candidate{
					opp: domain.Opportunity{
						IdentityKey:      identity,
						Type:             domain.OpportunityCycle,
						Symbols:          []string{e1.symbol, e2.symbol, e3.symbol},
						Markets:          []string{market},
						GrossSpreadPct:   gross,
						EstimatedFeesPct: gross - net,
						NetProfitPct:     net,
						VolumeUSD:        volume,
						DetectedAt:       snap.TakenAt,
					},
					path: []string{base, e1.to, e2.to},
				})
			}
		}
	}

	// Score in a second pass: an accepted reversed cycle trades the opposite
	// side of every book and contradicts this one.
	out := make([]domain.Opportunity, 0, len(accepted))
	for _, c := range accepted {
		reversed := domain.CycleIdentity(market, []string{c.path[0], c.path[2], c.path[1]})
		c.opp.Confidence = Confidence(d.cfg.Confidence, c.opp.NetProfitPct, c.opp.VolumeUSD, seen[reversed])
		out = append(out, c.opp)
	}
	return out
}

// buildGraph converts a market's ticker set into a directed conversion graph.
// Adjacency lists are sorted so the search order, and therefore the output
// order, is deterministic for a given snapshot.
func buildGraph(tickers map[string]domain.Ticker, takerFeePct float64) map[string][]edge {
	discount := 1 - takerFeePct/100

	symbols := make([]string, 0, len(tickers))
	for s := range tickers {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	adj := make(map[string][]edge)
	for _, symbol := range symbols {
		t := tickers[symbol]
		base, quote, ok := domain.SplitSymbol(symbol)
		if !ok {
			continue
		}
		if t.Ask > 0 {
			adj[quote] = append(adj[quote], edge{
				from:        quote,
				to:          base,
				symbol:      symbol,
				grossRate:   1 / t.Ask,
				netRate:     (1 / t.Ask) * discount,
				quoteVolume: t.QuoteVolume24h,
			})
		}
		if t.Bid > 0 {
			adj[base] = append(adj[base], edge{
				from:        base,
				to:          quote,
				symbol:      symbol,
				grossRate:   t.Bid,
				netRate:     t.Bid * discount,
				quoteVolume: t.QuoteVolume24h,
			})
		}
	}
	for node := range adj {
		sort.Slice(adj[node], func(i, j int) bool {
			if adj[node][i].to != adj[node][j].to {
				return adj[node][i].to < adj[node][j].to
			}
			return adj[node][i].symbol < adj[node][j].symbol
		})
	}
	return adj
}

func findEdge(edges []edge, to string) (edge, bool) {
	for _, e := range edges {
		if e.to == to {
			return e, true
		}
	}
	return edge{}, false
}
