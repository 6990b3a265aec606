package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/acremel/arbscan/internal/scanner"
)

// ScanStatus exposes the orchestrator's current state and last cycle.
type ScanStatus interface {
	Status() (scanner.State, *scanner.CycleResult)
	RunCycle(ctx context.Context) scanner.CycleResult
}

// StatusHandler serves scanner state and the manual scan trigger.
type StatusHandler struct {
	scan   ScanStatus
	mode   string
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler for the given run mode.
func NewStatusHandler(scan ScanStatus, mode string, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{scan: scan, mode: mode, logger: logger}
}

// GetStatus responds with the run mode, current scanner state, and a summary
// of the last completed cycle.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"mode": h.mode}

	if h.scan != nil {
		state, last := h.scan.Status()
		body["scanner_state"] = state
		if last != nil {
			body["last_cycle"] = map[string]any{
				"state":             last.State,
				"started_at":        last.StartedAt,
				"duration_ms":       last.Duration.Milliseconds(),
				"responded_markets": last.RespondedMarkets,
				"failed_markets":    last.FailedMarkets,
				"discarded_tickers": last.DiscardedTickers,
				"suppressed":        last.Suppressed,
				"opportunities":     len(last.Opportunities),
			}
		}
	}

	writeJSON(w, http.StatusOK, body)
}

// TriggerScan runs one scan cycle synchronously and returns its result.
// POST /api/scan
func (h *StatusHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scan == nil {
		writeError(w, http.StatusNotImplemented, "scanner not running in this mode")
		return
	}

	h.logger.InfoContext(r.Context(), "manual scan triggered",
		slog.String("remote_addr", r.RemoteAddr),
	)
	res := h.scan.RunCycle(r.Context())
	writeJSON(w, http.StatusOK, res)
}
