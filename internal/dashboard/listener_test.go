package dashboard_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/dashboard"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
	"jobtracker/internal/testutil"
)

func TestStorageListenerReceivesInjectedRecord(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	reg := store.NewRegistry(rdb, "test:", time.Minute)
	d := dashboard.NewDataLayer(&fakeAPI{}, store.NewMemory(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = dashboard.NewStorageListener(reg, "d1", d, slog.Default()).Run(ctx) }()

	env := model.NewEnvelope(model.JobRecord{Company: "Acme", Position: "Engineer"})
	assert.Eventually(t, func() bool { return reg.Inject(ctx, "d1", env) == nil }, 2*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return len(d.Applications()) == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := rdb.Get(ctx, "test:dashboard:d1:"+store.InjectedKey).Result()
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "the slot is cleared once read")
}

func TestAnnouncerRegistersAndUnregisters(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	reg := store.NewRegistry(rdb, "test:", time.Minute)
	self := store.Dashboard{ID: "d1", URL: "http://localhost:5173/", InboxURL: "http://localhost:5173/inbox"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dashboard.NewAnnouncer(reg, self, 20*time.Millisecond, slog.Default()).Run(ctx) }()

	assert.Eventually(t, func() bool {
		live, err := reg.List(context.Background())
		return err == nil && len(live) == 1 && live[0].InboxURL == self.InboxURL
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	live, err := reg.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, live)
}
