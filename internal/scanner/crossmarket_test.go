package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acremel/arbscan/internal/domain"
)

func crossConfig() CrossMarketConfig {
	return CrossMarketConfig{
		Symbols:      []string{"BTC/USDT"},
		MinProfitPct: 0.5,
		Confidence: ConfidenceConfig{
			ReferenceProfitPct: 2.0,
			ReferenceVolumeUSD: 1_000_000,
		},
	}
}

func TestCrossMarketSpreadDetected(t *testing.T) {
	snap := snapshot(
		tick("alpha", "BTC/USDT", 99.5, 100, 1_000_000),
		tick("beta", "BTC/USDT", 101, 101.5, 1_000_000),
	)
	det := NewCrossMarket(crossConfig(), testLogger())

	opps := det.Detect(context.Background(), snap)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "CROSS_MARKET|BTC/USDT|alpha>beta", opp.IdentityKey)
	assert.Equal(t, domain.OpportunityCrossMarket, opp.Type)
	assert.Equal(t, []string{"alpha", "beta"}, opp.Markets)
	assert.InDelta(t, 1.0, opp.GrossSpreadPct, 1e-9)
	assert.InDelta(t, 0.0, opp.EstimatedFeesPct, 1e-9)
	assert.InDelta(t, 1.0, opp.NetProfitPct, 1e-9)
	assert.Equal(t, 1_000_000.0, opp.VolumeUSD)
	assert.Equal(t, snapTime, opp.DetectedAt)
	// base 1.0/2.0*60 = 30, no volume bonus at reference, +10 consistency.
	assert.Equal(t, 40, opp.Confidence)
}

func TestCrossMarketFeesEraseSpread(t *testing.T) {
	snap := snapshot(
		tick("alpha", "BTC/USDT", 99.5, 100, 1_000_000),
		tick("beta", "BTC/USDT", 101, 101.5, 1_000_000),
	)
	snap = withTakerFee(snap, "alpha", 0.6)
	snap = withTakerFee(snap, "beta", 0.6)
	det := NewCrossMarket(crossConfig(), testLogger())

	// gross 1.0 - fees 1.2 = net -0.2, below any positive threshold.
	assert.Empty(t, det.Detect(context.Background(), snap))
}

func TestCrossMarketThresholdInclusive(t *testing.T) {
	cfg := crossConfig()
	cfg.MinProfitPct = 50

	// (1.5 - 1.0) / 1.0 * 100 = 50, exactly at the threshold: included.
	snap := snapshot(
		tick("alpha", "BTC/USDT", 0.99, 1.0, 1_000_000),
		tick("beta", "BTC/USDT", 1.5, 1.6, 1_000_000),
	)
	det := NewCrossMarket(cfg, testLogger())
	opps := det.Detect(context.Background(), snap)
	require.Len(t, opps, 1)
	assert.Equal(t, 50.0, opps[0].NetProfitPct)

	// Below the threshold: excluded.
	snap = snapshot(
		tick("alpha", "BTC/USDT", 0.99, 1.0, 1_000_000),
		tick("beta", "BTC/USDT", 1.25, 1.3, 1_000_000),
	)
	assert.Empty(t, det.Detect(context.Background(), snap))
}

func TestCrossMarketEqualPricesNeverProfit(t *testing.T) {
	// With the sell bid equal to the buy ask there is no gross spread, so any
	// non-negative fee leaves net <= 0.
	for _, fee := range []float64{0, 0.1, 1.0} {
		snap := snapshot(
			tick("alpha", "BTC/USDT", 99.9, 100, 1_000_000),
			tick("beta", "BTC/USDT", 100, 100.1, 1_000_000),
		)
		snap = withTakerFee(snap, "alpha", fee)
		snap = withTakerFee(snap, "beta", fee)

		cfg := crossConfig()
		cfg.MinProfitPct = 0.000001
		det := NewCrossMarket(cfg, testLogger())
		assert.Empty(t, det.Detect(context.Background(), snap), "taker fee %.2f", fee)
	}
}

func TestCrossMarketVolumeGate(t *testing.T) {
	cfg := crossConfig()
	cfg.MinVolumeUSD = 1_000_000

	// The smaller leg's volume is what counts.
	snap := snapshot(
		tick("alpha", "BTC/USDT", 99.5, 100, 2_000_000),
		tick("beta", "BTC/USDT", 101, 101.5, 500_000),
	)
	det := NewCrossMarket(cfg, testLogger())
	assert.Empty(t, det.Detect(context.Background(), snap))

	snap = snapshot(
		tick("alpha", "BTC/USDT", 99.5, 100, 2_000_000),
		tick("beta", "BTC/USDT", 101, 101.5, 1_000_000),
	)
	opps := det.Detect(context.Background(), snap)
	require.Len(t, opps, 1)
	assert.Equal(t, 1_000_000.0, opps[0].VolumeUSD)
}

func TestCrossMarketWithdrawalFee(t *testing.T) {
	cfg := crossConfig()
	cfg.IncludeWithdrawalFee = true
	cfg.DefaultWithdrawalFee = 0.002

	snap := snapshot(
		tick("alpha", "BTC/USDT", 99.5, 100, 1_000_000),
		tick("beta", "BTC/USDT", 101, 101.5, 1_000_000),
	)
	snap.Fees["alpha"] = domain.FeeSchedule{
		Market:         "alpha",
		WithdrawalFees: map[string]float64{"BTC": 0.001},
	}
	det := NewCrossMarket(cfg, testLogger())

	opps := det.Detect(context.Background(), snap)
	require.Len(t, opps, 1)
	// The buy market's BTC withdrawal fee, 0.001 of a unit = 0.1%.
	assert.InDelta(t, 0.1, opps[0].EstimatedFeesPct, 1e-9)
	assert.InDelta(t, 0.9, opps[0].NetProfitPct, 1e-9)

	// No schedule entry on the buy side falls back to the configured default.
	snap.Fees["alpha"] = domain.FeeSchedule{Market: "alpha"}
	opps = det.Detect(context.Background(), snap)
	require.Len(t, opps, 1)
	assert.InDelta(t, 0.2, opps[0].EstimatedFeesPct, 1e-9)
}

func TestCrossMarketContradictionForfeitsConsistency(t *testing.T) {
	// A crossed book on alpha makes both directions clear the threshold. Both
	// survive, but neither earns the consistency bonus.
	cfg := crossConfig()
	cfg.MinProfitPct = 1.0

	snap := snapshot(
		tick("beta", "BTC/USDT", 105, 106, 1_000_000),
	)
	snap.Tickers["alpha"] = map[string]domain.Ticker{
		"BTC/USDT": {Market: "alpha", Symbol: "BTC/USDT", Bid: 110, Ask: 100, QuoteVolume24h: 1_000_000},
	}
	snap.Fees["alpha"] = domain.FeeSchedule{Market: "alpha"}

	det := NewCrossMarket(cfg, testLogger())
	opps := det.Detect(context.Background(), snap)
	require.Len(t, opps, 2)

	for _, opp := range opps {
		contradiction := Confidence(cfg.Confidence, opp.NetProfitPct, opp.VolumeUSD, true)
		corroborated := Confidence(cfg.Confidence, opp.NetProfitPct, opp.VolumeUSD, false)
		assert.Equal(t, contradiction, opp.Confidence, "identity %s", opp.IdentityKey)
		assert.Equal(t, corroborated-10, opp.Confidence, "identity %s", opp.IdentityKey)
	}
}

func TestCrossMarketConfidenceFloor(t *testing.T) {
	cfg := crossConfig()
	cfg.MinConfidence = 50

	// net 1.0 scores base 30 + consistency 10 = 40, below the floor.
	snap := snapshot(
		tick("alpha", "BTC/USDT", 99.5, 100, 1_000_000),
		tick("beta", "BTC/USDT", 101, 101.5, 1_000_000),
	)
	det := NewCrossMarket(cfg, testLogger())
	assert.Empty(t, det.Detect(context.Background(), snap))

	cfg.MinConfidence = 40
	det = NewCrossMarket(cfg, testLogger())
	assert.Len(t, det.Detect(context.Background(), snap), 1)
}

func TestCrossMarketDeterministic(t *testing.T) {
	cfg := crossConfig()
	cfg.Symbols = []string{"BTC/USDT", "ETH/USDT"}

	snap := snapshot(
		tick("alpha", "BTC/USDT", 99.5, 100, 1_000_000),
		tick("beta", "BTC/USDT", 101, 101.5, 2_000_000),
		tick("gamma", "BTC/USDT", 102, 102.5, 3_000_000),
		tick("alpha", "ETH/USDT", 3000, 3001, 1_000_000),
		tick("beta", "ETH/USDT", 3050, 3051, 1_000_000),
	)
	det := NewCrossMarket(cfg, testLogger())

	first := det.Detect(context.Background(), snap)
	second := det.Detect(context.Background(), snap)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}
