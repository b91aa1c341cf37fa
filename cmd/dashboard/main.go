// jobtracker dashboard
//
// Serves the dashboard data layer as JSON. The list is loaded from the
// backend, kept current by the backend push channel, and mirrored locally
// so the dashboard keeps working while the backend is down.
//
// The process registers itself so the capture daemon can deliver records
// straight to it: over POST /inbox, or through its injected storage slot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jobtracker/internal/backend"
	"jobtracker/internal/config"
	"jobtracker/internal/dashboard"
	"jobtracker/internal/db"
	"jobtracker/internal/store"
)

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[dashboard] Config error: %v", err)
	}
	logger := config.NewLogger(os.Stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ────────────────────────────────────────────────────────────────
	handles, err := db.OpenStore(ctx, cfg.Store, "jobtracker-dashboard", logger)
	if err != nil {
		log.Fatalf("[dashboard] Store (%s): %v", cfg.Store.Driver, err)
	}
	defer handles.Close()

	// ── Data layer ───────────────────────────────────────────────────────────
	api := backend.New(cfg.Backend.URL, cfg.Backend.Timeout)
	layer := dashboard.NewDataLayer(api, handles.Store, logger)
	recs, err := layer.Load(ctx)
	if err != nil {
		log.Fatalf("[dashboard] Initial load: %v", err)
	}
	logger.Info("applications loaded", "count", len(recs), "online", layer.Online())

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	dashboard.NewHandler(layer).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         ":" + cfg.Dashboard.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Backend.Timeout + 10*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("dashboard listening", "addr", srv.Addr, "url", cfg.Dashboard.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// ── Live channel ─────────────────────────────────────────────────────────
	feed := dashboard.NewLiveFeed(cfg.Dashboard.LiveURL, cfg.Dashboard.URL, cfg.Dashboard.LiveReconnect, layer, logger)
	g.Go(func() error { return feed.Run(gctx) })

	// ── Registry ─────────────────────────────────────────────────────────────
	if handles.Redis != nil {
		reg := store.NewRegistry(handles.Redis, cfg.Store.KeyPrefix, 3*cfg.Dashboard.Heartbeat)
		self := store.Dashboard{
			ID:       uuid.NewString(),
			URL:      cfg.Dashboard.URL,
			InboxURL: strings.TrimRight(cfg.Dashboard.URL, "/") + "/inbox",
		}
		g.Go(func() error {
			return dashboard.NewAnnouncer(reg, self, cfg.Dashboard.Heartbeat, logger).Run(gctx)
		})
		g.Go(func() error {
			return dashboard.NewStorageListener(reg, self.ID, layer, logger).Run(gctx)
		})
	} else {
		logger.Warn("no redis; capture can reach this dashboard only through the backend")
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("dashboard stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
