package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acremel/arbscan/internal/domain"
	"github.com/acremel/arbscan/internal/scanner"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOppService struct {
	recent    []domain.Opportunity
	recentErr error
	gotLimit  int

	stream    []domain.StreamMessage
	gotLastID string
}

func (s *fakeOppService) ListRecent(_ context.Context, limit int) ([]domain.Opportunity, error) {
	s.gotLimit = limit
	return s.recent, s.recentErr
}

func (s *fakeOppService) ReplayStream(_ context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	s.gotLastID = lastID
	return s.stream, nil
}

func TestListRecent(t *testing.T) {
	svc := &fakeOppService{recent: []domain.Opportunity{
		{ID: "a", IdentityKey: "CROSS_MARKET|BTC/USDT|binance>kraken"},
	}}
	h := NewOpportunityHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities/recent", nil)
	rec := httptest.NewRecorder()
	h.ListRecent(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, svc.gotLimit, "default limit")

	var body struct {
		Opportunities []domain.Opportunity `json:"opportunities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Opportunities, 1)
	assert.Equal(t, "a", body.Opportunities[0].ID)
}

func TestListRecentLimitCapped(t *testing.T) {
	svc := &fakeOppService{}
	h := NewOpportunityHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities/recent?limit=5000", nil)
	h.ListRecent(httptest.NewRecorder(), req)
	assert.Equal(t, 200, svc.gotLimit)
}

func TestListRecentEmptyIsArray(t *testing.T) {
	h := NewOpportunityHandler(&fakeOppService{}, testLogger())

	rec := httptest.NewRecorder()
	h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/recent", nil))

	assert.JSONEq(t, `{"opportunities":[]}`, rec.Body.String())
}

func TestListRecentError(t *testing.T) {
	svc := &fakeOppService{recentErr: errors.New("db down")}
	h := NewOpportunityHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/recent", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to list opportunities")
}

func TestReplayStream(t *testing.T) {
	svc := &fakeOppService{stream: []domain.StreamMessage{
		{ID: "1-0", Payload: []byte(`{"id":"a"}`)},
	}}
	h := NewOpportunityHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.ReplayStream(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/stream", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", svc.gotLastID, "default cursor replays from the start")
	assert.JSONEq(t, `{"events":[{"id":"1-0","opportunity":{"id":"a"}}]}`, rec.Body.String())
}

func TestHealthCheckLivenessOnly(t *testing.T) {
	h := NewHealthHandler(testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheckDegraded(t *testing.T) {
	h := NewHealthHandler(testLogger()).
		WithDependency("postgres", pingFunc(func(context.Context) error { return nil })).
		WithDependency("redis", pingFunc(func(context.Context) error { return errors.New("refused") }))

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Dependencies["postgres"])
	assert.Equal(t, "unavailable", body.Dependencies["redis"])
}

type fakeScan struct {
	state scanner.State
	last  *scanner.CycleResult
	runs  int
}

func (f *fakeScan) Status() (scanner.State, *scanner.CycleResult) { return f.state, f.last }

func (f *fakeScan) RunCycle(context.Context) scanner.CycleResult {
	f.runs++
	return scanner.CycleResult{State: scanner.StateDone, StartedAt: time.Now()}
}

func TestGetStatusServerOnlyMode(t *testing.T) {
	h := NewStatusHandler(nil, "server", testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.JSONEq(t, `{"mode":"server"}`, rec.Body.String())
}

func TestGetStatusWithLastCycle(t *testing.T) {
	scan := &fakeScan{
		state: scanner.StateIdle,
		last: &scanner.CycleResult{
			State:            scanner.StateDone,
			RespondedMarkets: []string{"binance", "kraken"},
			FailedMarkets:    []string{"coinbase"},
			Suppressed:       2,
			Opportunities:    []domain.Opportunity{{ID: "a"}},
		},
	}
	h := NewStatusHandler(scan, "full", testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "full", body["mode"])
	assert.Equal(t, "IDLE", body["scanner_state"])

	last, ok := body["last_cycle"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DONE", last["state"])
	assert.Equal(t, float64(1), last["opportunities"])
	assert.Equal(t, float64(2), last["suppressed"])
}

func TestTriggerScan(t *testing.T) {
	scan := &fakeScan{}
	h := NewStatusHandler(scan, "full", testLogger())

	rec := httptest.NewRecorder()
	h.TriggerScan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, scan.runs)
	assert.Contains(t, rec.Body.String(), `"state":"DONE"`)
}

func TestTriggerScanWithoutScanner(t *testing.T) {
	h := NewStatusHandler(nil, "server", testLogger())

	rec := httptest.NewRecorder()
	h.TriggerScan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
