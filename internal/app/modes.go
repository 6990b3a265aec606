package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acremel/arbscan/internal/gateway"
	"github.com/acremel/arbscan/internal/scanner"
	"github.com/acremel/arbscan/internal/server"
	"github.com/acremel/arbscan/internal/server/handler"
	"github.com/acremel/arbscan/internal/server/ws"
	"github.com/acremel/arbscan/internal/service"
)

// buildOrchestrator assembles the gateway, both detectors, and the consumer
// into a scan orchestrator.
func (a *App) buildOrchestrator(deps *Dependencies) *scanner.Orchestrator {
	gw := gateway.NewREST(gateway.Config{
		Endpoints: a.cfg.Gateway.Endpoints,
		UserAgent: a.cfg.Gateway.UserAgent,
	})

	confidence := scanner.ConfidenceConfig{
		ReferenceProfitPct: a.cfg.Scanner.ReferenceProfitPct,
		ReferenceVolumeUSD: a.cfg.Scanner.ReferenceVolumeUSD,
	}

	cross := scanner.NewCrossMarket(scanner.CrossMarketConfig{
		Symbols:              a.cfg.Scanner.Symbols,
		MinProfitPct:         a.cfg.Scanner.MinProfitPct,
		MinConfidence:        a.cfg.Scanner.MinConfidence,
		MinVolumeUSD:         a.cfg.Scanner.MinVolumeUSD,
		IncludeWithdrawalFee: a.cfg.Scanner.IncludeWithdrawalFee,
		DefaultWithdrawalFee: a.cfg.Scanner.DefaultWithdrawalFee,
		Confidence:           confidence,
	}, a.logger)

	cycle := scanner.NewCycle(scanner.CycleConfig{
		BaseCurrencies: a.cfg.Scanner.CycleBaseCurrencies,
		MinProfitPct:   a.cfg.Scanner.MinProfitPct,
		MinVolumeUSD:   a.cfg.Scanner.CycleMinVolumeUSD,
		Confidence:     confidence,
	}, a.logger)

	consumer := service.NewOpportunityService(deps.Store, deps.Bus, deps.Notifier, a.logger)

	return scanner.NewOrchestrator(scanner.OrchestratorConfig{
		Markets:      a.cfg.Scanner.Markets,
		FetchTimeout: a.cfg.Scanner.FetchTimeout.Duration,
		ScanInterval: a.cfg.Scanner.ScanInterval.Duration,
		CoolDown:     a.cfg.Scanner.CoolDown.Duration,
	}, gw, cross, cycle, deps.CoolDown, consumer, a.logger)
}

// ScanMode runs the detection loop without the API surface.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	orch := a.buildOrchestrator(deps)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

// OnceMode runs exactly one scan cycle, writes the result as JSON to stdout,
// and exits. Useful for cron jobs and smoke tests.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting one-shot scan")

	orch := a.buildOrchestrator(deps)
	res := orch.RunCycle(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("once mode: encode result: %w", err)
	}

	if res.State == scanner.StateFailed {
		return fmt.Errorf("once mode: no market responded")
	}
	return nil
}

// ServerMode serves the API over persisted history without running the
// detection loop.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)

	return g.Wait()
}

// FullMode runs the detection loop and the API surface together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	orch := a.buildOrchestrator(deps)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	a.startArchiveLoop(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, orch)
	}

	return g.Wait()
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// errgroup. orch may be nil (server mode), in which case the status endpoint
// reports no scanner and the scan trigger returns 501.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, orch *scanner.Orchestrator) {
	svc := service.NewOpportunityService(deps.Store, deps.Bus, deps.Notifier, a.logger)

	health := handler.NewHealthHandler(a.logger)
	if deps.PG != nil {
		health = health.WithDependency("postgres", deps.PG.Pool())
	}
	if deps.Redis != nil {
		health = health.WithDependency("redis", deps.Redis)
	}

	var scan handler.ScanStatus
	if orch != nil {
		scan = orch
	}

	handlers := server.Handlers{
		Health:        health,
		Opportunities: handler.NewOpportunityHandler(svc, a.logger),
		Status:        handler.NewStatusHandler(scan, a.cfg.Mode, a.logger),
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.cfg.Mode, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiveLoop adds the periodic history archival goroutine when archival
// is enabled.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Archive.Enabled || deps.Archiver == nil {
		return
	}

	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	interval := a.cfg.Archive.Interval.Duration

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				if _, err := deps.Archiver.ArchiveBefore(ctx, cutoff); err != nil {
					a.logger.ErrorContext(ctx, "archive run failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	})
}
