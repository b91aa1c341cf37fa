// jobtracker capture daemon
//
// Reads job-posting pages, extracts an application record and delivers it
// through the tiered pipeline:
//   - primary backend, then the fallback backend
//   - open dashboards (HTTP inbox, then the injected storage slot)
//   - the local queue, flushed to the backend by a cron job
//
// Exposes POST /messages for extract/save requests and a gRPC health
// service that follows backend reachability.
//
// Usage:
//
//	capture                         serve
//	capture -watch URL [-auto]      serve and watch URL for apply controls
//	capture -capture URL            capture URL once and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"jobtracker/internal/backend"
	"jobtracker/internal/capture"
	"jobtracker/internal/config"
	"jobtracker/internal/db"
	"jobtracker/internal/delivery"
	"jobtracker/internal/extract"
	"jobtracker/internal/grpcserver"
	"jobtracker/internal/store"
	"jobtracker/internal/syncer"
)

const version = "1.0.0"

func main() {
	watchURL := flag.String("watch", "", "page to watch for apply controls")
	auto := flag.Bool("auto", false, "capture when a new apply control appears (with -watch)")
	once := flag.String("capture", "", "capture this page once and exit")
	flag.Parse()

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[capture] Config error: %v", err)
	}
	logger := config.NewLogger(os.Stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ────────────────────────────────────────────────────────────────
	handles, err := db.OpenStore(ctx, cfg.Store, "jobtracker-capture", logger)
	if err != nil {
		log.Fatalf("[capture] Store (%s): %v", cfg.Store.Driver, err)
	}
	defer handles.Close()
	logger.Info("store ready", "driver", cfg.Store.Driver)

	// ── Pipeline ─────────────────────────────────────────────────────────────
	primary := backend.New(cfg.Backend.URL, cfg.Backend.Timeout)
	deps := delivery.Deps{
		Primary:      primary,
		Queue:        handles.Store,
		HostPatterns: cfg.Capture.DashboardHosts,
	}
	if cfg.Backend.FallbackURL != "" {
		deps.Fallback = backend.New(cfg.Backend.FallbackURL, cfg.Backend.Timeout)
	}
	if handles.Redis != nil {
		reg := store.NewRegistry(handles.Redis, cfg.Store.KeyPrefix, 3*cfg.Dashboard.Heartbeat)
		deps.Dashboards = reg
		deps.Injector = reg
		deps.Messenger = delivery.NewHTTPMessenger(cfg.Backend.Timeout)
	}
	pipeline := delivery.New(deps, logger)

	fetcher := capture.NewCollyFetcher(cfg.Capture.UserAgent, cfg.Backend.Timeout, cfg.Capture.FetchRate, cfg.Capture.FetchBurst)
	orch := capture.NewOrchestrator(fetcher, capture.NewLogIndicator(logger), handles.Store, pipeline, cfg.Capture.SettleDelay, logger)

	// ── One-shot ─────────────────────────────────────────────────────────────
	if *once != "" {
		if !extract.IsJobSite(*once) {
			logger.Warn("not a supported job site; falling back to generic extraction", "url", *once)
		}
		res, err := orch.Capture(ctx, *once)
		if err != nil && !errors.Is(err, backend.ErrDuplicate) {
			log.Fatalf("[capture] %s: %v", *once, err)
		}
		fmt.Printf("%s (%s): %s / %s\n", res.Message, res.Tier, res.Data.Company, res.Data.Position)
		return
	}

	// ── Health + sync ────────────────────────────────────────────────────────
	health := grpcserver.New(logger)
	sched := syncer.New(syncer.NewWorker(handles.Store, primary, logger), primary, health, cfg.Capture.SyncInterval, logger)

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	capture.NewHandler(orch).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:        ":" + cfg.Capture.Port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// Extraction waits for the settle delay and a page fetch.
		WriteTimeout: cfg.Capture.SettleDelay + 2*cfg.Backend.Timeout + 10*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("capture listening", "version", version, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", ":"+cfg.Capture.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		return health.Serve(lis)
	})

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	if *watchURL != "" {
		w := capture.NewWatcher(*watchURL, fetcher, orch, capture.WatchOptions{
			Interval:    cfg.Capture.WatchInterval,
			Debounce:    cfg.Capture.RescanDebounce,
			ClickDelay:  cfg.Capture.ClickDelay,
			AutoCapture: *auto,
		}, logger)
		g.Go(func() error { return w.Run(gctx) })
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		health.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("capture stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"capture","version":%q}`+"\n", version)
}
