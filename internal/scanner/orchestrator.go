package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acremel/arbscan/internal/domain"
)

// State is the orchestrator's position in the per-cycle state machine.
type State string

const (
	StateIdle        State = "IDLE"
	StateFetching    State = "FETCHING"
	StateDetecting   State = "DETECTING"
	StateAggregating State = "AGGREGATING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Consumer receives each cycle's ranked opportunity list. Implementations
// persist, publish, or alert; the orchestrator does not care which.
type Consumer interface {
	Consume(ctx context.Context, opps []domain.Opportunity) error
}

// OrchestratorConfig configures the scan orchestrator.
type OrchestratorConfig struct {
	// Markets is the list of markets to fetch each cycle.
	Markets []string
	// FetchTimeout bounds each market's fetch independently; a hung market
	// cannot starve the others.
	FetchTimeout time.Duration
	// ScanInterval is the sleep between the end of one cycle and the start
	// of the next.
	ScanInterval time.Duration
	// CoolDown is the minimum elapsed time before a previously reported
	// opportunity identity may be reported again.
	CoolDown time.Duration
}

// CycleResult summarizes one completed scan cycle.
type CycleResult struct {
	State            State                `json:"state"`
	StartedAt        time.Time            `json:"started_at"`
	Duration         time.Duration        `json:"duration"`
	RespondedMarkets []string             `json:"responded_markets"`
	FailedMarkets    []string             `json:"failed_markets"`
	DiscardedTickers int                  `json:"discarded_tickers"`
	Suppressed       int                  `json:"suppressed"`
	Opportunities    []domain.Opportunity `json:"opportunities"`
}

// Orchestrator drives one detection cycle at a time: concurrent best-effort
// fetch, both detectors, then merge, cool-down filtering, ranking, and
// emission. Cycles never overlap; the cool-down cache is the only state that
// survives between them.
type Orchestrator struct {
	cfg       OrchestratorConfig
	gateway   domain.MarketDataGateway
	detectors []Detector
	cooldown  domain.CoolDownCache
	consumer  Consumer
	logger    *slog.Logger
	now       func() time.Time

	// runMu serializes cycles: a manual trigger arriving while the run loop
	// is mid-cycle waits for it to finish instead of racing it.
	runMu sync.Mutex

	mu   sync.Mutex
	st   State
	last *CycleResult
}

// NewOrchestrator creates an Orchestrator over the closed detector set.
func NewOrchestrator(
	cfg OrchestratorConfig,
	gateway domain.MarketDataGateway,
	cross *CrossMarket,
	cycle *Cycle,
	cooldown domain.CoolDownCache,
	consumer Consumer,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		gateway:   gateway,
		detectors: []Detector{cross, cycle},
		cooldown:  cooldown,
		consumer:  consumer,
		logger:    logger.With(slog.String("component", "orchestrator")),
		now:       time.Now,
		st:        StateIdle,
	}
}

// Run executes scan cycles back to back with the configured interval between
// them, until ctx is cancelled. Cancellation is observed only between cycles;
// every fetch carries its own timeout, so a cycle always terminates.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator started",
		slog.Int("markets", len(o.cfg.Markets)),
		slog.Duration("scan_interval", o.cfg.ScanInterval),
	)
	defer o.logger.Info("orchestrator stopped")

	for {
		res := o.RunCycle(ctx)
		o.logger.Info("scan cycle finished",
			slog.String("state", string(res.State)),
			slog.Duration("duration", res.Duration),
			slog.Int("responded", len(res.RespondedMarkets)),
			slog.Int("failed", len(res.FailedMarkets)),
			slog.Int("opportunities", len(res.Opportunities)),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.ScanInterval):
		}
	}
}

// RunCycle executes exactly one scan cycle. Concurrent callers are
// serialized, so the cool-down cache sees one read-then-write per cycle.
// A cycle never returns an error: per-market and per-ticker problems are
// absorbed into a best-effort snapshot, and a cycle where zero markets
// respond is reported as FAILED but is not fatal.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleResult {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	start := o.now()
	res := CycleResult{StartedAt: start}

	o.setState(StateFetching)
	snap, failed, discarded := o.fetch(ctx)
	res.RespondedMarkets = snap.Markets()
	res.FailedMarkets = failed
	res.DiscardedTickers = discarded

	if len(snap.Tickers) == 0 {
		o.logger.Error("cycle failed: no market responded",
			slog.Int("markets", len(o.cfg.Markets)),
		)
		res.State = StateFailed
		res.Opportunities = []domain.Opportunity{}
		res.Duration = o.now().Sub(start)
		o.finish(StateFailed, &res)
		return res
	}

	o.setState(StateDetecting)
	var merged []domain.Opportunity
	for _, det := range o.detectors {
		found := det.Detect(ctx, snap)
		o.logger.Debug("detector finished",
			slog.String("detector", det.Name()),
			slog.Int("found", len(found)),
		)
		merged = append(merged, found...)
	}

	o.setState(StateAggregating)
	fresh, suppressed := o.filterCoolDown(ctx, merged)
	domain.SortOpportunities(fresh)
	res.Suppressed = suppressed
	res.Opportunities = fresh

	if o.consumer != nil && len(fresh) > 0 {
		if err := o.consumer.Consume(ctx, fresh); err != nil {
			o.logger.Warn("consumer failed",
				slog.Int("opportunities", len(fresh)),
				slog.String("error", err.Error()),
			)
		}
	}
	o.markReported(ctx, fresh)

	res.State = StateDone
	res.Duration = o.now().Sub(start)
	o.finish(StateDone, &res)
	return res
}

// Status reports the current state and the last completed cycle, for the API
// surface.
func (o *Orchestrator) Status() (State, *CycleResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.st, o.last
}

// fetch fans out one fetch task per configured market, each with its own
// timeout. A market is excluded from the snapshot when its fee schedule or
// ticker set cannot be retrieved; individual tickers failing validation are
// discarded with a log line, never corrected.
func (o *Orchestrator) fetch(ctx context.Context) (Snapshot, []string, int) {
	snap := Snapshot{
		Tickers: make(map[string]map[string]domain.Ticker),
		Fees:    make(map[string]domain.FeeSchedule),
		TakenAt: o.now(),
	}

	var (
		mu        sync.Mutex
		failed    []string
		discarded int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, market := range o.cfg.Markets {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, o.cfg.FetchTimeout)
			defer cancel()

			fees, err := o.gateway.FetchFeeSchedule(fctx, market)
			if err == nil {
				var tickers []domain.Ticker
				tickers, err = o.gateway.FetchTickers(fctx, market)
				if err == nil {
					valid := make(map[string]domain.Ticker, len(tickers))
					var dropped int
					for _, t := range tickers {
						if verr := t.Validate(); verr != nil {
							dropped++
							o.logger.Warn("ticker discarded",
								slog.String("market", market),
								slog.String("symbol", t.Symbol),
								slog.String("reason", verr.Error()),
							)
							continue
						}
						valid[t.Symbol] = t
					}
					mu.Lock()
					snap.Tickers[market] = valid
					snap.Fees[market] = fees
					discarded += dropped
					mu.Unlock()
					return nil
				}
			}

			// Transient per-market failure: excluded from this cycle, retried
			// automatically next cycle.
			o.logger.Warn("market fetch failed",
				slog.String("market", market),
				slog.String("error", err.Error()),
			)
			mu.Lock()
			failed = append(failed, market)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return snap, failed, discarded
}

// filterCoolDown drops every opportunity whose identity was reported inside
// the cool-down window. Cache errors fail open: a broken cache must not
// suppress detection.
func (o *Orchestrator) filterCoolDown(ctx context.Context, opps []domain.Opportunity) ([]domain.Opportunity, int) {
	if o.cfg.CoolDown <= 0 {
		return opps, 0
	}
	now := o.now()
	fresh := make([]domain.Opportunity, 0, len(opps))
	suppressed := 0
	for _, opp := range opps {
		last, err := o.cooldown.LastReportedAt(ctx, opp.IdentityKey)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			o.logger.Warn("cool-down lookup failed",
				slog.String("identity", opp.IdentityKey),
				slog.String("error", err.Error()),
			)
		case now.Sub(last) < o.cfg.CoolDown:
			suppressed++
			continue
		}
		fresh = append(fresh, opp)
	}
	return fresh, suppressed
}

func (o *Orchestrator) markReported(ctx context.Context, opps []domain.Opportunity) {
	now := o.now()
	for _, opp := range opps {
		if err := o.cooldown.MarkReported(ctx, opp.IdentityKey, now, o.cfg.CoolDown); err != nil {
			o.logger.Warn("cool-down update failed",
				slog.String("identity", opp.IdentityKey),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.st = s
	o.mu.Unlock()
}

func (o *Orchestrator) finish(s State, res *CycleResult) {
	o.mu.Lock()
	o.st = s
	o.last = res
	o.mu.Unlock()
}
