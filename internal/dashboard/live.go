package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/websocket"

	"jobtracker/internal/model"
)

// LiveFeed follows the backend push channel and applies every message to
// a DataLayer. A closed connection is redialled after a fixed delay.
type LiveFeed struct {
	url       string
	origin    string
	reconnect time.Duration
	layer     *DataLayer
	log       *slog.Logger
}

// NewLiveFeed constructs a LiveFeed for the ws(s) url. origin is sent as
// the Origin header, normally the dashboard's own URL.
func NewLiveFeed(url, origin string, reconnect time.Duration, layer *DataLayer, log *slog.Logger) *LiveFeed {
	return &LiveFeed{
		url:       url,
		origin:    origin,
		reconnect: reconnect,
		layer:     layer,
		log:       log.With("component", "live"),
	}
}

// Run keeps the channel open until ctx is cancelled.
func (f *LiveFeed) Run(ctx context.Context) error {
	for {
		err := f.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		f.log.Warn("live channel closed; reconnecting", "err", err, "in", f.reconnect)

		t := time.NewTimer(f.reconnect)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (f *LiveFeed) session(ctx context.Context) error {
	cfg, err := websocket.NewConfig(f.url, f.origin)
	if err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// Receive blocks without a context; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	f.log.Info("live channel connected", "url", f.url)
	for {
		var msg model.LiveMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return err
		}
		f.layer.Apply(ctx, msg)
	}
}
