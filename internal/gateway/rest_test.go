package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acremel/arbscan/internal/domain"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tickers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol":"BTC/USDT","bid":49990,"ask":50010,"last":50000,"baseVolume":120,"quoteVolume":6000000,"timestamp":1754049600000},
			{"symbol":"ETH/USDT","bid":3100,"ask":3101,"last":3100.5,"baseVolume":900,"quoteVolume":2790000,"timestamp":1754049600000}
		]`))
	})
	mux.HandleFunc("GET /ticker", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "BTC/USDT" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"BTC/USDT","bid":49990,"ask":50010,"last":50000,"baseVolume":120,"quoteVolume":6000000,"timestamp":1754049600000}`))
	})
	mux.HandleFunc("GET /fees", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"taker":0.001,"maker":0.0008,"withdrawalFees":{"BTC":0.0002}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchTickers(t *testing.T) {
	srv := testServer(t)
	g := NewREST(Config{Endpoints: map[string]string{"binance": srv.URL}})

	tickers, err := g.FetchTickers(context.Background(), "binance")
	require.NoError(t, err)
	require.Len(t, tickers, 2)

	btc := tickers[0]
	assert.Equal(t, "binance", btc.Market)
	assert.Equal(t, "BTC/USDT", btc.Symbol)
	assert.Equal(t, 49990.0, btc.Bid)
	assert.Equal(t, 50010.0, btc.Ask)
	assert.Equal(t, 6_000_000.0, btc.QuoteVolume24h)
	assert.Equal(t, time.UnixMilli(1754049600000).UTC(), btc.Timestamp)
}

func TestFetchTicker(t *testing.T) {
	srv := testServer(t)
	g := NewREST(Config{Endpoints: map[string]string{"binance": srv.URL}})

	tick, err := g.FetchTicker(context.Background(), "binance", "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", tick.Symbol)
	assert.Equal(t, 50000.0, tick.LastPrice)

	_, err = g.FetchTicker(context.Background(), "binance", "DOGE/USDT")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchFeeScheduleConvertsToPercent(t *testing.T) {
	srv := testServer(t)
	g := NewREST(Config{Endpoints: map[string]string{"binance": srv.URL}})

	fees, err := g.FetchFeeSchedule(context.Background(), "binance")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, fees.TakerFeePct, 1e-9)
	assert.InDelta(t, 0.08, fees.MakerFeePct, 1e-9)
	assert.Equal(t, 0.0002, fees.WithdrawalFees["BTC"])
}

func TestUnknownMarket(t *testing.T) {
	g := NewREST(Config{Endpoints: map[string]string{}})
	_, err := g.FetchTickers(context.Background(), "binance")
	assert.ErrorIs(t, err, domain.ErrMarketUnavailable)
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	g := NewREST(Config{Endpoints: map[string]string{"binance": srv.URL}})

	_, err := g.FetchTickers(context.Background(), "binance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	g := NewREST(Config{Endpoints: map[string]string{"binance": srv.URL}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.FetchTickers(ctx, "binance")
	assert.Error(t, err)
}

func TestUserAgentHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	g := NewREST(Config{
		Endpoints: map[string]string{"binance": srv.URL},
		UserAgent: "arbscan/1.0",
	})

	_, err := g.FetchTickers(context.Background(), "binance")
	require.NoError(t, err)
	assert.Equal(t, "arbscan/1.0", got)
}
