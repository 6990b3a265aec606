package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acremel/arbscan/internal/domain"
)

type fakeStore struct {
	inserted  []domain.Opportunity
	insertErr error
	recent    []domain.Opportunity
}

func (s *fakeStore) Insert(_ context.Context, opp domain.Opportunity) error {
	s.inserted = append(s.inserted, opp)
	return s.insertErr
}

func (s *fakeStore) InsertBatch(_ context.Context, opps []domain.Opportunity) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, opps...)
	return nil
}

func (s *fakeStore) ListRecent(context.Context, int) ([]domain.Opportunity, error) {
	return s.recent, nil
}

func (s *fakeStore) ListBefore(context.Context, time.Time) ([]domain.Opportunity, error) {
	return nil, nil
}

func (s *fakeStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeBus struct {
	published  map[string][][]byte
	appended   map[string][][]byte
	publishErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][][]byte),
		appended:  make(map[string][][]byte),
	}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.appended[stream] = append(b.appended[stream], payload)
	return nil
}

func (b *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOpps(n int) []domain.Opportunity {
	out := make([]domain.Opportunity, n)
	for i := range out {
		out[i] = domain.Opportunity{
			IdentityKey:  fmt.Sprintf("CROSS_MARKET|BTC/USDT|alpha>m%d", i),
			Type:         domain.OpportunityCrossMarket,
			Symbols:      []string{"BTC/USDT"},
			Markets:      []string{"alpha", fmt.Sprintf("m%d", i)},
			NetProfitPct: float64(n - i),
			Confidence:   70,
			DetectedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestConsumeAssignsIDsAndPersists(t *testing.T) {
	store := &fakeStore{}
	svc := NewOpportunityService(store, nil, nil, discardLogger())

	var seq int
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}

	require.NoError(t, svc.Consume(context.Background(), sampleOpps(2)))
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "id-1", store.inserted[0].ID)
	assert.Equal(t, "id-2", store.inserted[1].ID)
}

func TestConsumeDefaultIDsAreUnique(t *testing.T) {
	store := &fakeStore{}
	svc := NewOpportunityService(store, nil, nil, discardLogger())

	require.NoError(t, svc.Consume(context.Background(), sampleOpps(3)))
	seen := make(map[string]bool)
	for _, opp := range store.inserted {
		require.NotEmpty(t, opp.ID)
		assert.False(t, seen[opp.ID], "duplicate id %s", opp.ID)
		seen[opp.ID] = true
	}
}

func TestConsumeStoreFailureIsReturned(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("connection reset")}
	svc := NewOpportunityService(store, nil, nil, discardLogger())

	err := svc.Consume(context.Background(), sampleOpps(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist cycle")
}

func TestConsumePublishesEachOpportunity(t *testing.T) {
	bus := newFakeBus()
	svc := NewOpportunityService(&fakeStore{}, bus, nil, discardLogger())

	require.NoError(t, svc.Consume(context.Background(), sampleOpps(2)))

	require.Len(t, bus.published[OpportunityChannel], 2)
	require.Len(t, bus.appended[OpportunityStream], 2)

	var opp domain.Opportunity
	require.NoError(t, json.Unmarshal(bus.published[OpportunityChannel][0], &opp))
	assert.NotEmpty(t, opp.ID)
	assert.Equal(t, "CROSS_MARKET|BTC/USDT|alpha>m0", opp.IdentityKey)
}

func TestConsumeBusFailureDoesNotFailCycle(t *testing.T) {
	bus := newFakeBus()
	bus.publishErr = errors.New("redis down")
	store := &fakeStore{}
	svc := NewOpportunityService(store, bus, nil, discardLogger())

	assert.NoError(t, svc.Consume(context.Background(), sampleOpps(1)))
	assert.Len(t, store.inserted, 1)
	// The durable stream still gets the event.
	assert.Len(t, bus.appended[OpportunityStream], 1)
}

func TestConsumeEmptyBatchIsNoop(t *testing.T) {
	store := &fakeStore{}
	svc := NewOpportunityService(store, nil, nil, discardLogger())

	require.NoError(t, svc.Consume(context.Background(), nil))
	assert.Empty(t, store.inserted)
}

func TestListRecentRequiresStore(t *testing.T) {
	svc := NewOpportunityService(nil, nil, nil, discardLogger())
	_, err := svc.ListRecent(context.Background(), 10)
	assert.Error(t, err)

	store := &fakeStore{recent: sampleOpps(2)}
	svc = NewOpportunityService(store, nil, nil, discardLogger())
	opps, err := svc.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, opps, 2)
}
