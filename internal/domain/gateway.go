package domain

import "context"

// MarketDataGateway is the external market-data collaborator. Every call is
// independently cancellable through its context; the scanner never blocks
// indefinitely on a market.
type MarketDataGateway interface {
	// FetchTicker returns the current ticker for one symbol on one market.
	FetchTicker(ctx context.Context, market, symbol string) (Ticker, error)
	// FetchTickers returns the full ticker set for one market, covering every
	// tradable symbol. The cycle detector builds its conversion graph from
	// this set.
	FetchTickers(ctx context.Context, market string) ([]Ticker, error)
	// FetchFeeSchedule returns the trading and withdrawal fees for a market.
	FetchFeeSchedule(ctx context.Context, market string) (FeeSchedule, error)
}
