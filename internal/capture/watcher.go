package capture

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"
	"time"

	"jobtracker/internal/delivery"
	"jobtracker/internal/extract"
)

// Capturer extracts and delivers a page.
type Capturer interface {
	Capture(ctx context.Context, url string) (delivery.Result, error)
}

// WatchOptions tune a Watcher.
type WatchOptions struct {
	// Interval between page polls.
	Interval time.Duration
	// Debounce is the quiet period after a change before rescanning.
	Debounce time.Duration
	// ClickDelay is the wait between spotting a new apply control and
	// capturing.
	ClickDelay time.Duration
	// AutoCapture captures whenever a new apply control shows up.
	AutoCapture bool
}

// Watcher follows one page, instrumenting each apply control it finds
// exactly once. The page is scanned on the first poll and rescanned,
// debounced, whenever its markup changes.
type Watcher struct {
	url      string
	fetcher  PageFetcher
	capturer Capturer
	opts     WatchOptions
	log      *slog.Logger

	mu       sync.Mutex
	seen     map[string]bool
	lastHash [sha256.Size]byte
	targets  []extract.ApplyTarget

	wg sync.WaitGroup
}

// NewWatcher returns a watcher for url.
func NewWatcher(url string, fetcher PageFetcher, capturer Capturer, opts WatchOptions, log *slog.Logger) *Watcher {
	return &Watcher{
		url:      url,
		fetcher:  fetcher,
		capturer: capturer,
		opts:     opts,
		log:      log.With("component", "watcher", "url", url),
		seen:     make(map[string]bool),
	}
}

// Targets returns the apply controls instrumented so far.
func (w *Watcher) Targets() []extract.ApplyTarget {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]extract.ApplyTarget(nil), w.targets...)
}

// Run polls until ctx is cancelled, then waits for in-flight captures.
func (w *Watcher) Run(ctx context.Context) error {
	debouncer := NewDebouncer(w.opts.Debounce)
	defer func() {
		// A running rescan may still add captures; it must finish first.
		debouncer.Stop()
		w.wg.Wait()
	}()

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	first := true
	for {
		page, err := w.fetcher.Fetch(ctx, w.url)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				w.log.Warn("poll failed", "err", err)
			}
		case first:
			first = false
			w.lastHash = sha256.Sum256(page.Body)
			w.rescan(ctx, page)
		default:
			if h := sha256.Sum256(page.Body); h != w.lastHash {
				w.lastHash = h
				debouncer.Trigger(func() { w.rescan(ctx, page) })
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) rescan(ctx context.Context, page *Page) {
	w.mu.Lock()
	found := extract.DetectApplyTargets(page.Doc, w.seen)
	w.targets = append(w.targets, found...)
	w.mu.Unlock()

	for _, t := range found {
		w.log.Info("instrumented apply control", "label", t.Label, "selector", t.Selector)
	}
	if len(found) == 0 || !w.opts.AutoCapture || ctx.Err() != nil {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := sleep(ctx, w.opts.ClickDelay); err != nil {
			return
		}
		res, err := w.capturer.Capture(ctx, w.url)
		if err != nil {
			w.log.Warn("auto capture failed", "err", err)
			return
		}
		w.log.Info("auto captured", "tier", res.Tier, "message", res.Message)
	}()
}
