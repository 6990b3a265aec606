package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/acremel/arbscan/internal/domain"
)

// OpportunityService defines the methods the opportunity handler requires.
type OpportunityService interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error)
	ReplayStream(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error)
}

// OpportunityHandler serves detection history over HTTP.
type OpportunityHandler struct {
	svc    OpportunityService
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(svc OpportunityService, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{svc: svc, logger: logger}
}

// listOpportunitiesResponse wraps the recent-opportunities response.
type listOpportunitiesResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// ListRecent returns the most recent persisted detections.
// GET /api/opportunities/recent?limit=20
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 200)

	opps, err := h.svc.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunitiesResponse{Opportunities: opps})
}

// streamEvent is one replayed event with its stream cursor.
type streamEvent struct {
	ID          string          `json:"id"`
	Opportunity json.RawMessage `json:"opportunity"`
}

// ReplayStream returns persisted opportunity events from the durable stream,
// for clients catching up after a disconnect.
// GET /api/opportunities/stream?last_id=0&limit=100
func (h *OpportunityHandler) ReplayStream(w http.ResponseWriter, r *http.Request) {
	lastID := r.URL.Query().Get("last_id")
	if lastID == "" {
		lastID = "0"
	}
	limit := parseLimit(r, 100, 1000)

	msgs, err := h.svc.ReplayStream(r.Context(), lastID, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: replay stream failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read stream")
		return
	}

	events := make([]streamEvent, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, streamEvent{ID: m.ID, Opportunity: m.Payload})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
