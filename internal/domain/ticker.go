// Package domain defines the core data model for the arbitrage scanner:
// market snapshots (tickers, fee schedules), detected opportunities, and the
// interfaces that external collaborators (gateway, caches, stores) implement.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Ticker is a point-in-time snapshot of best bid/ask and trailing 24h volume
// for one instrument on one market.
type Ticker struct {
	Market         string    `json:"market"`
	Symbol         string    `json:"symbol"` // "BASE/QUOTE", e.g. "BTC/USDT"
	Bid            float64   `json:"bid"`
	Ask            float64   `json:"ask"`
	LastPrice      float64   `json:"last_price"`
	BaseVolume24h  float64   `json:"base_volume_24h"`
	QuoteVolume24h float64   `json:"quote_volume_24h"`
	Timestamp      time.Time `json:"timestamp"`
}

// Validate checks the ticker's internal consistency. Tickers that fail
// validation are discarded by the scanner, never corrected.
func (t Ticker) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidTicker)
	}
	if t.Bid < 0 || t.Ask < 0 || t.LastPrice < 0 {
		return fmt.Errorf("%w: %s on %s has negative price", ErrInvalidTicker, t.Symbol, t.Market)
	}
	if t.BaseVolume24h < 0 || t.QuoteVolume24h < 0 {
		return fmt.Errorf("%w: %s on %s has negative volume", ErrInvalidTicker, t.Symbol, t.Market)
	}
	// Covers one-sided books too: a positive bid with no ask is discarded.
	if t.Bid > t.Ask {
		return fmt.Errorf("%w: %s on %s has crossed book (bid %.8f > ask %.8f)",
			ErrInvalidTicker, t.Symbol, t.Market, t.Bid, t.Ask)
	}
	return nil
}

// Base returns the base currency of the symbol ("BTC" for "BTC/USDT").
func (t Ticker) Base() string {
	base, _, _ := SplitSymbol(t.Symbol)
	return base
}

// Quote returns the quote currency of the symbol ("USDT" for "BTC/USDT").
func (t Ticker) Quote() string {
	_, quote, _ := SplitSymbol(t.Symbol)
	return quote
}

// SplitSymbol splits a "BASE/QUOTE" symbol into its two currencies.
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	base, quote, ok = strings.Cut(symbol, "/")
	if !ok || base == "" || quote == "" {
		return "", "", false
	}
	return base, quote, true
}

// FeeSchedule holds the trading and withdrawal fees for one market.
type FeeSchedule struct {
	Market         string             `json:"market"`
	TakerFeePct    float64            `json:"taker_fee_pct"` // e.g. 0.1 for 0.1%
	MakerFeePct    float64            `json:"maker_fee_pct"`
	WithdrawalFees map[string]float64 `json:"withdrawal_fees"` // currency -> amount in that currency
}

// WithdrawalFee returns the withdrawal fee amount for the given currency.
// An unknown currency falls back to the supplied default amount; this is
// explicit policy, not an error.
func (f FeeSchedule) WithdrawalFee(currency string, defaultAmount float64) float64 {
	if amt, ok := f.WithdrawalFees[currency]; ok {
		return amt
	}
	return defaultAmount
}
