package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/websocket"

	"jobtracker/internal/dashboard"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestLiveFeedAppliesMessages(t *testing.T) {
	a := model.JobRecord{ID: "1", Company: "Acme", Position: "Engineer", Status: model.StatusApplied}
	b := model.JobRecord{ID: "2", Company: "Globex", Position: "Analyst", Status: model.StatusApplied}
	updated := a
	updated.Status = model.StatusInterviewScheduled

	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		_ = websocket.JSON.Send(ws, model.LiveMessage{Type: model.LiveInitialData, Applications: []model.JobRecord{a}})
		_ = websocket.JSON.Send(ws, model.LiveMessage{Type: model.LiveNewApplication, Application: &b})
		_ = websocket.JSON.Send(ws, model.LiveMessage{Type: model.LiveApplicationUpdated, Application: &updated})
		_, _ = io.Copy(io.Discard, ws)
	}))
	defer srv.Close()

	d := dashboard.NewDataLayer(&fakeAPI{}, store.NewMemory(), slog.Default())
	feed := dashboard.NewLiveFeed(wsURL(srv), "http://localhost/", time.Second, d, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	assert.Eventually(t, func() bool {
		got := d.Applications()
		return len(got) == 2 && got[0].Status == model.StatusInterviewScheduled
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("live feed did not stop")
	}
}

func TestLiveFeedReconnects(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		n := conns.Add(1)
		rec := model.JobRecord{ID: string(rune('0' + n)), Company: "Acme", Position: "Engineer"}
		_ = websocket.JSON.Send(ws, model.LiveMessage{Type: model.LiveNewApplication, Application: &rec})
		// Drop the connection straight away.
	}))
	defer srv.Close()

	d := dashboard.NewDataLayer(&fakeAPI{}, store.NewMemory(), slog.Default())
	feed := dashboard.NewLiveFeed(wsURL(srv), "http://localhost/", 20*time.Millisecond, d, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = feed.Run(ctx) }()

	assert.Eventually(t, func() bool { return conns.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}
