// Package app assembles the auction service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/efreitasn/ledgerauction/internal/config"
	"github.com/efreitasn/ledgerauction/internal/engine"
	"github.com/efreitasn/ledgerauction/internal/gatekeeper"
	"github.com/efreitasn/ledgerauction/internal/handler"
	"github.com/efreitasn/ledgerauction/internal/journal"
	"github.com/efreitasn/ledgerauction/internal/metrics"
	"github.com/efreitasn/ledgerauction/internal/service"
	"github.com/efreitasn/ledgerauction/internal/store"
)

// App holds every component of a running auction service.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Ledger     *store.MemoryLedger
	Bids       *store.BidStore
	Events     *store.EventStore
	Gatekeeper *gatekeeper.Registry
	Journal    *journal.Journal // nil when no journal path is configured

	Machine  *engine.Machine
	Closer   *engine.Closer // nil when scheduled ends are disabled
	Notifier *service.Notifier
	Auctions *service.AuctionService

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Router   http.Handler
}

// New builds the service. Sinks are registered in the order events should
// reach them: event store, journal, metrics.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		Ledger: store.NewMemoryLedger(),
		Bids:   store.NewBidStore(),
		Events: store.NewEventStore(),
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(cfg.MetricsNamespace, a.Registry)

	clock := engine.SystemClock{}
	a.Gatekeeper = gatekeeper.NewRegistry(cfg.GatewayProgram, clock.Now)

	// Notifier first: the closer reports scheduled ends through it.
	a.Notifier = service.NewNotifier(logger)
	a.Notifier.Register("events", a.Events)
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.Journal = j
		a.Notifier.Register("journal", j)
	}
	a.Notifier.Register("metrics", a.Metrics)

	a.Machine = engine.NewMachine(a.Ledger, a.Gatekeeper, a.Bids, clock, engine.Options{
		ProgramID:        cfg.AuctionProgram,
		BookDegree:       cfg.BookDegree,
		AutoRefundLosers: cfg.AutoRefundLosers,
	})

	var scheduler service.Scheduler
	if cfg.CloseInterval > 0 {
		a.Closer = engine.NewCloser(cfg.CloseInterval, a.Machine, a.Notifier)
		scheduler = a.Closer
	}

	a.Auctions = service.NewAuctionService(a.Machine, a.Events, a.Notifier, scheduler, a.Metrics, logger)
	a.Router = handler.NewRouter(a.Auctions, metrics.Handler(a.Registry), logger)

	logger.Info("auction service assembled",
		slog.String("program_id", cfg.AuctionProgram.String()),
		slog.Int("book_degree", cfg.BookDegree),
		slog.Bool("auto_refund_losers", cfg.AutoRefundLosers),
		slog.Bool("journal", a.Journal != nil),
		slog.Duration("close_interval", cfg.CloseInterval),
	)
	return a, nil
}

// Start launches the background closer, if enabled. It stops with ctx.
func (a *App) Start(ctx context.Context) {
	if a.Closer != nil {
		a.Closer.Start(ctx)
	}
}

// Server returns an HTTP server for the operational router.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
		IdleTimeout:  a.Config.IdleTimeout,
	}
}

// Close releases the journal.
func (a *App) Close() error {
	var errs []error
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}
