package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acremel/arbscan/internal/domain"
)

type fakeSender struct {
	name string
	sent []string
	fail bool
}

func (s *fakeSender) Send(_ context.Context, title, _ string) error {
	if s.fail {
		return errors.New("delivery failed")
	}
	s.sent = append(s.sent, title)
	return nil
}

func (s *fakeSender) Name() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyEventFilter(t *testing.T) {
	sender := &fakeSender{name: "telegram"}
	n := NewNotifier([]Sender{sender}, []string{EventOpportunity}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventScanFailed, "ignored", "body"))
	assert.Empty(t, sender.sent)

	require.NoError(t, n.Notify(context.Background(), EventOpportunity, "delivered", "body"))
	assert.Equal(t, []string{"delivered"}, sender.sent)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, sender.sent, 1)
}

func TestNotifyCollectsSenderFailures(t *testing.T) {
	broken := &fakeSender{name: "telegram", fail: true}
	working := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{broken, working}, nil, testLogger())

	err := n.Notify(context.Background(), EventOpportunity, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	// The broken channel does not block the working one.
	assert.Len(t, working.sent, 1)
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), EventOpportunity, "t", "m"))
}

func TestFormatOpportunity(t *testing.T) {
	opp := domain.Opportunity{
		Type:             domain.OpportunityCrossMarket,
		Symbols:          []string{"BTC/USDT"},
		Markets:          []string{"binance", "kraken"},
		GrossSpreadPct:   1.0,
		EstimatedFeesPct: 0.2,
		NetProfitPct:     0.8,
		Confidence:       64,
		VolumeUSD:        1_500_000,
		DetectedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	title, message := FormatOpportunity(opp)
	assert.Equal(t, "Cross-market opportunity BTC/USDT", title)
	assert.Contains(t, message, "Markets: binance / kraken")
	assert.Contains(t, message, "Net profit: 0.800% (gross 1.000%, fees 0.200%)")
	assert.Contains(t, message, "Confidence: 64/100")
	assert.Contains(t, message, "Tradable volume: $1500000")
	assert.Contains(t, message, "2026-08-01 12:00:00 UTC")
}

func TestFormatCycleOpportunity(t *testing.T) {
	opp := domain.Opportunity{
		Type:    domain.OpportunityCycle,
		Symbols: []string{"BTC/USDT", "ETH/BTC", "ETH/USDT"},
		Markets: []string{"binance"},
	}

	title, message := FormatOpportunity(opp)
	assert.Equal(t, "Cycle opportunity on binance", title)
	assert.Contains(t, message, "Path: BTC/USDT -> ETH/BTC -> ETH/USDT")
}
