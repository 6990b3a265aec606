// Package service holds the application services that sit between the
// scanner and the infrastructure layers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/acremel/arbscan/internal/domain"
	"github.com/acremel/arbscan/internal/notify"
)

// Bus channel and stream names for detected opportunities.
const (
	OpportunityChannel = "opportunities"
	OpportunityStream  = "stream:opportunities"
)

// OpportunityService is the scanner's consumer: it assigns record IDs,
// persists each cycle's detections, fans them out on the signal bus, and
// alerts operators about the best one. Store, bus, and notifier are all
// optional so the service degrades to whatever infrastructure is wired.
type OpportunityService struct {
	store    domain.OpportunityStore
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger

	newID func() string
}

// NewOpportunityService creates an OpportunityService. Any of store, bus, and
// notifier may be nil.
func NewOpportunityService(
	store domain.OpportunityStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		store:    store,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "opportunity_service")),
		newID:    uuid.NewString,
	}
}

// Consume receives one scan cycle's ranked opportunities. Detection records
// get their UUIDs here, at the persistence boundary, so the detectors stay
// deterministic for identical snapshots. Bus and notification failures are
// logged but do not fail the cycle; only a store failure is returned.
func (s *OpportunityService) Consume(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	for i := range opps {
		opps[i].ID = s.newID()
	}

	if s.store != nil {
		if err := s.store.InsertBatch(ctx, opps); err != nil {
			return fmt.Errorf("opportunity_service: persist cycle: %w", err)
		}
	}

	if s.bus != nil {
		s.publish(ctx, opps)
	}

	if s.notifier != nil {
		// opps arrive ranked; alert only on the best one per cycle.
		title, message := notify.FormatOpportunity(opps[0])
		if err := s.notifier.Notify(ctx, notify.EventOpportunity, title, message); err != nil {
			s.logger.WarnContext(ctx, "notify failed",
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "cycle recorded",
		slog.Int("count", len(opps)),
		slog.Float64("best_net_profit_pct", opps[0].NetProfitPct),
	)

	return nil
}

// publish sends each opportunity to the pub/sub channel for live consumers
// (the WebSocket hub) and appends it to the durable stream.
func (s *OpportunityService) publish(ctx context.Context, opps []domain.Opportunity) {
	for _, opp := range opps {
		evt, err := json.Marshal(opp)
		if err != nil {
			s.logger.WarnContext(ctx, "marshal opportunity failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := s.bus.Publish(ctx, OpportunityChannel, evt); err != nil {
			s.logger.WarnContext(ctx, "publish opportunity failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.bus.StreamAppend(ctx, OpportunityStream, evt); err != nil {
			s.logger.WarnContext(ctx, "stream append failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ListRecent returns the most recent persisted detections.
func (s *OpportunityService) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if s.store == nil {
		return nil, fmt.Errorf("opportunity_service: no store configured")
	}
	opps, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list recent: %w", err)
	}
	return opps, nil
}

// ReplayStream reads persisted opportunity events from the durable stream,
// for consumers that need to catch up after a disconnect.
func (s *OpportunityService) ReplayStream(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	if s.bus == nil {
		return nil, fmt.Errorf("opportunity_service: no bus configured")
	}
	msgs, err := s.bus.StreamRead(ctx, OpportunityStream, lastID, count)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: replay stream: %w", err)
	}
	return msgs, nil
}
