package scanner

import (
	"context"
	"log/slog"

	"github.com/acremel/arbscan/internal/domain"
)

// CrossMarketConfig configures the cross-market detector.
type CrossMarketConfig struct {
	// Symbols is the list of instruments to compare across markets.
	Symbols []string
	// MinProfitPct is the inclusive net-profit threshold.
	MinProfitPct float64
	// MinConfidence drops scored opportunities below this floor.
	MinConfidence int
	// MinVolumeUSD gates on the smaller of the two legs' 24h quote volume.
	MinVolumeUSD float64
	// IncludeWithdrawalFee adds the buy leg's base-asset withdrawal fee to
	// the fee estimate. Which leg bears the fee is explicit configuration,
	// not a guess: it is always charged on the buy leg's base asset, since
	// that is the asset that has to move between markets.
	IncludeWithdrawalFee bool
	// DefaultWithdrawalFee is the base-asset amount assumed when a market's
	// fee schedule has no entry for the currency.
	DefaultWithdrawalFee float64
	Confidence           ConfidenceConfig
}

// CrossMarket detects price discrepancies for one instrument across every
// ordered pair of markets: buy at the ask on one, sell at the bid on the
// other, net of taker fees on both legs and an optional withdrawal fee.
type CrossMarket struct {
	cfg    CrossMarketConfig
	logger *slog.Logger
}

// NewCrossMarket creates the cross-market detector.
func NewCrossMarket(cfg CrossMarketConfig, logger *slog.Logger) *CrossMarket {
	return &CrossMarket{
		cfg:    cfg,
		logger: logger.With(slog.String("detector", "cross_market")),
	}
}

// Name returns the detector identifier.
func (d *CrossMarket) Name() string { return "cross_market" }

// Detect compares every configured symbol across all market pairs in the
// snapshot and returns the accepted opportunities with confidence filled in.
func (d *CrossMarket) Detect(ctx context.Context, snap Snapshot) []domain.Opportunity {
	var out []domain.Opportunity
	for _, symbol := range d.cfg.Symbols {
		out = append(out, d.detectSymbol(ctx, symbol, snap)...)
	}
	return out
}

func (d *CrossMarket) detectSymbol(ctx context.Context, symbol string, snap Snapshot) []domain.Opportunity {
	markets := snap.Markets()

	// First pass: every ordered (buy, sell) pair that clears the profit and
	// volume gates. Confidence is assigned in a second pass because the
	// consistency signal needs the full accepted set.
	accepted := make([]domain.Opportunity, 0, 4)
	byIdentity := make(map[string]bool)

	for _, buyMarket := range markets {
		buy, ok := snap.Ticker(buyMarket, symbol)
		if !ok || buy.Ask <= 0 {
			continue
		}
		for _, sellMarket := range markets {
			if sellMarket == buyMarket {
				continue
			}
			sell, ok := snap.Ticker(sellMarket, symbol)
			if !ok || sell.Bid <= 0 {
				continue
			}

			gross := (sell.Bid - buy.Ask) / buy.Ask * 100
			fees := d.estimateFees(symbol, snap.Fees[buyMarket], snap.Fees[sellMarket])
			net := gross - fees

			if net < d.cfg.MinProfitPct {
				continue
			}
			volume := min(buy.QuoteVolume24h, sell.QuoteVolume24h)
			if volume < d.cfg.MinVolumeUSD {
				continue
			}

			opp := domain.Opportunity{
				IdentityKey:      domain.CrossMarketIdentity(symbol, buyMarket, sellMarket),
				Type:             domain.OpportunityCrossMarket,
				Symbols:          []string{symbol},
				Markets:          []string{buyMarket, sellMarket},
				GrossSpreadPct:   gross,
				EstimatedFeesPct: fees,
				NetProfitPct:     net,
				VolumeUSD:        volume,
				DetectedAt:       snap.TakenAt,
			}
			accepted = append(accepted, opp)
			byIdentity[opp.IdentityKey] = true
		}
	}

	// Second pass: score. An accepted opposite-direction pair is a
	// contradictory signal and forfeits the consistency bonus for both.
	out := make([]domain.Opportunity, 0, len(accepted))
	for _, opp := range accepted {
		reverse := domain.CrossMarketIdentity(symbol, opp.Markets[1], opp.Markets[0])
		contradicted := byIdentity[reverse]
		opp.Confidence = Confidence(d.cfg.Confidence, opp.NetProfitPct, opp.VolumeUSD, contradicted)
		if opp.Confidence < d.cfg.MinConfidence {
			d.logger.DebugContext(ctx, "opportunity below confidence floor",
				slog.String("identity", opp.IdentityKey),
				slog.Int("confidence", opp.Confidence),
			)
			continue
		}
		out = append(out, opp)
	}
	return out
}

// estimateFees returns the total fee estimate in percent: taker fee on both
// legs plus, when enabled, the buy leg's base-asset withdrawal fee expressed
// as a share of one traded unit.
func (d *CrossMarket) estimateFees(symbol string, buyFees, sellFees domain.FeeSchedule) float64 {
	total := buyFees.TakerFeePct + sellFees.TakerFeePct
	if d.cfg.IncludeWithdrawalFee {
		base, _, ok := domain.SplitSymbol(symbol)
		if ok {
			amt := buyFees.WithdrawalFee(base, d.cfg.DefaultWithdrawalFee)
			total += amt * 100
		}
	}
	return total
}
