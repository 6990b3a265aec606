package scanner

import (
	"io"
	"log/slog"
	"time"

	"github.com/acremel/arbscan/internal/domain"
)

var snapTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tick builds a ticker with a sane last price and equal base/quote volume.
func tick(market, symbol string, bid, ask, quoteVol float64) domain.Ticker {
	return domain.Ticker{
		Market:         market,
		Symbol:         symbol,
		Bid:            bid,
		Ask:            ask,
		LastPrice:      (bid + ask) / 2,
		QuoteVolume24h: quoteVol,
	}
}

// snapshot assembles a Snapshot from ticker lists, with a zero-fee schedule
// per market unless overridden afterwards.
func snapshot(tickers ...domain.Ticker) Snapshot {
	snap := Snapshot{
		Tickers: make(map[string]map[string]domain.Ticker),
		Fees:    make(map[string]domain.FeeSchedule),
		TakenAt: snapTime,
	}
	for _, t := range tickers {
		if snap.Tickers[t.Market] == nil {
			snap.Tickers[t.Market] = make(map[string]domain.Ticker)
			snap.Fees[t.Market] = domain.FeeSchedule{Market: t.Market}
		}
		snap.Tickers[t.Market][t.Symbol] = t
	}
	return snap
}

func withTakerFee(snap Snapshot, market string, pct float64) Snapshot {
	f := snap.Fees[market]
	f.TakerFeePct = pct
	snap.Fees[market] = f
	return snap
}
