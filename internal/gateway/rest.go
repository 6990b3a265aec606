// Package gateway implements domain.MarketDataGateway against per-market
// REST endpoints. Each configured market exposes the same small surface
// (ticker, tickers, fees), typically through an exchange-normalization proxy.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/acremel/arbscan/internal/domain"
)

// Config holds the gateway's per-market endpoints.
type Config struct {
	// Endpoints maps a market name to its REST base URL.
	Endpoints map[string]string
	// UserAgent is sent on every request when non-empty.
	UserAgent string
}

// REST is a MarketDataGateway over plain HTTP. Request deadlines come from
// the caller's context; the embedded client timeout is only a safety net.
type REST struct {
	cfg        Config
	httpClient *http.Client
}

// NewREST creates a REST gateway for the configured markets.
func NewREST(cfg Config) *REST {
	return &REST{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiTicker is the JSON shape returned by the ticker endpoints.
type apiTicker struct {
	Symbol      string  `json:"symbol"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Last        float64 `json:"last"`
	BaseVolume  float64 `json:"baseVolume"`
	QuoteVolume float64 `json:"quoteVolume"`
	Timestamp   int64   `json:"timestamp"` // Unix milliseconds
}

func (a apiTicker) toDomain(market string) domain.Ticker {
	return domain.Ticker{
		Market:         market,
		Symbol:         a.Symbol,
		Bid:            a.Bid,
		Ask:            a.Ask,
		LastPrice:      a.Last,
		BaseVolume24h:  a.BaseVolume,
		QuoteVolume24h: a.QuoteVolume,
		Timestamp:      time.UnixMilli(a.Timestamp).UTC(),
	}
}

// apiFees is the JSON shape returned by the fees endpoint.
type apiFees struct {
	Taker          float64            `json:"taker"` // fraction, e.g. 0.001
	Maker          float64            `json:"maker"`
	WithdrawalFees map[string]float64 `json:"withdrawalFees"`
}

func (a apiFees) toDomain(market string) domain.FeeSchedule {
	return domain.FeeSchedule{
		Market:         market,
		TakerFeePct:    a.Taker * 100,
		MakerFeePct:    a.Maker * 100,
		WithdrawalFees: a.WithdrawalFees,
	}
}

// FetchTicker returns the current ticker for one symbol on one market.
func (g *REST) FetchTicker(ctx context.Context, market, symbol string) (domain.Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := g.doGet(ctx, market, "/ticker?"+params.Encode())
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("gateway: ticker %s %s: %w", market, symbol, err)
	}

	var t apiTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.Ticker{}, fmt.Errorf("gateway: decode ticker %s %s: %w", market, symbol, err)
	}
	return t.toDomain(market), nil
}

// FetchTickers returns the full ticker set for one market.
func (g *REST) FetchTickers(ctx context.Context, market string) ([]domain.Ticker, error) {
	body, err := g.doGet(ctx, market, "/tickers")
	if err != nil {
		return nil, fmt.Errorf("gateway: tickers %s: %w", market, err)
	}

	var raw []apiTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("gateway: decode tickers %s: %w", market, err)
	}

	out := make([]domain.Ticker, 0, len(raw))
	for _, t := range raw {
		out = append(out, t.toDomain(market))
	}
	return out, nil
}

// FetchFeeSchedule returns the trading and withdrawal fees for a market.
func (g *REST) FetchFeeSchedule(ctx context.Context, market string) (domain.FeeSchedule, error) {
	body, err := g.doGet(ctx, market, "/fees")
	if err != nil {
		return domain.FeeSchedule{}, fmt.Errorf("gateway: fees %s: %w", market, err)
	}

	var f apiFees
	if err := json.Unmarshal(body, &f); err != nil {
		return domain.FeeSchedule{}, fmt.Errorf("gateway: decode fees %s: %w", market, err)
	}
	return f.toDomain(market), nil
}

func (g *REST) doGet(ctx context.Context, market, path string) ([]byte, error) {
	base, ok := g.cfg.Endpoints[market]
	if !ok {
		return nil, fmt.Errorf("%w: no endpoint for %q", domain.ErrMarketUnavailable, market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", g.cfg.UserAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	return io.ReadAll(resp.Body)
}

// Compile-time interface check.
var _ domain.MarketDataGateway = (*REST)(nil)
