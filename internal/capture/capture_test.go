package capture_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/backend"
	"jobtracker/internal/capture"
	"jobtracker/internal/delivery"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// staticFetcher serves fixed markup, optionally blocking until released.
type staticFetcher struct {
	mu     sync.Mutex
	html   string
	calls  atomic.Int32
	gate   chan struct{}
	called chan struct{}
}

func (f *staticFetcher) set(html string) {
	f.mu.Lock()
	f.html = html
	f.mu.Unlock()
}

func (f *staticFetcher) Fetch(ctx context.Context, url string) (*capture.Page, error) {
	f.calls.Add(1)
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	body := f.html
	f.mu.Unlock()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &capture.Page{URL: url, Body: []byte(body), Doc: doc}, nil
}

type recordingIndicator struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingIndicator) Show(string) { r.add("show") }

func (r *recordingIndicator) Hide(_ string, err error) {
	if err != nil {
		r.add("hide:error")
		return
	}
	r.add("hide")
}

func (r *recordingIndicator) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

type fakeDeliverer struct {
	mu   sync.Mutex
	recs []model.JobRecord
	err  error
}

func (d *fakeDeliverer) Deliver(_ context.Context, rec model.JobRecord) (delivery.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := rec.Validate(); err != nil {
		return delivery.Result{}, err
	}
	d.recs = append(d.recs, rec)
	if d.err != nil {
		return delivery.Result{Tier: delivery.TierPrimary, Data: rec, Message: delivery.MsgDuplicate}, d.err
	}
	return delivery.Result{Tier: delivery.TierPrimary, Data: rec, Message: delivery.MsgSaved}, nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.recs)
}

const linkedInURL = "https://www.linkedin.com/jobs/view/42"

const linkedInHTML = `<html><body>
<h1 class="top-card-layout__title">Software Engineer</h1>
<a class="topcard__org-name-link">Acme Corp</a>
<span class="topcard__flavor--bullet">Remote</span>
<button class="top-card-layout__cta--primary">Apply</button>
</body></html>`

func TestExtractUsesSiteExtractorAndStoresPending(t *testing.T) {
	f := &staticFetcher{html: linkedInHTML}
	ind := &recordingIndicator{}
	pending := store.NewMemory()
	o := capture.NewOrchestrator(f, ind, pending, &fakeDeliverer{}, 0, quiet)

	rec, err := o.Extract(context.Background(), linkedInURL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", rec.Company)
	assert.Equal(t, "Software Engineer", rec.Position)
	assert.Equal(t, "Remote", rec.Location)
	assert.Equal(t, linkedInURL, rec.JobURL)
	assert.NotEmpty(t, rec.ExtractedAt)
	assert.Equal(t, model.StatusApplied, rec.Status)
	assert.Equal(t, []string{"show", "hide"}, ind.events)
	assert.Equal(t, capture.Idle, o.State())

	saved, err := pending.LoadPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec, saved)
}

func TestUnusableExtractionEscalatesToAggressive(t *testing.T) {
	html := `<body><h2>Staff Data Scientist</h2><span class="org-name">Hooli</span></body>`
	o := capture.NewOrchestrator(&staticFetcher{html: html}, &recordingIndicator{}, nil, &fakeDeliverer{}, 0, quiet)

	rec, err := o.Extract(context.Background(), "https://www.linkedin.com/jobs/view/1")
	require.NoError(t, err)
	assert.Equal(t, "Staff Data Scientist", rec.Position)
	assert.Equal(t, "Hooli", rec.Company)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/1", rec.JobURL, "job url survives the fallback")
}

func TestNothingFoundIsReported(t *testing.T) {
	ind := &recordingIndicator{}
	o := capture.NewOrchestrator(&staticFetcher{html: `<body><p>hi</p></body>`}, ind, nil, &fakeDeliverer{}, 0, quiet)

	_, err := o.Extract(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, capture.ErrNoJobData)
	assert.Equal(t, []string{"show", "hide:error"}, ind.events)
	assert.Equal(t, capture.Idle, o.State())
}

func TestReentrantExtractIsRejected(t *testing.T) {
	f := &staticFetcher{html: linkedInHTML, gate: make(chan struct{}), called: make(chan struct{}, 1)}
	o := capture.NewOrchestrator(f, &recordingIndicator{}, nil, &fakeDeliverer{}, 0, quiet)

	done := make(chan error, 1)
	go func() {
		_, err := o.Extract(context.Background(), linkedInURL)
		done <- err
	}()
	<-f.called
	assert.Equal(t, capture.Extracting, o.State())

	_, err := o.Extract(context.Background(), linkedInURL)
	assert.ErrorIs(t, err, capture.ErrAlreadyExtracting)

	close(f.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, capture.Idle, o.State())
}

func TestSettleDelayHonoursCancellation(t *testing.T) {
	f := &staticFetcher{html: linkedInHTML}
	o := capture.NewOrchestrator(f, &recordingIndicator{}, nil, &fakeDeliverer{}, time.Hour, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Extract(ctx, linkedInURL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.calls.Load())
}

func TestCaptureDeliversAndClearsPending(t *testing.T) {
	d := &fakeDeliverer{}
	pending := store.NewMemory()
	o := capture.NewOrchestrator(&staticFetcher{html: linkedInHTML}, &recordingIndicator{}, pending, d, 0, quiet)

	res, err := o.Capture(context.Background(), linkedInURL)
	require.NoError(t, err)
	assert.Equal(t, delivery.TierPrimary, res.Tier)
	assert.Equal(t, 1, d.count())

	_, err = pending.LoadPending(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWatcherAutoCapturesOncePerApplyControl(t *testing.T) {
	f := &staticFetcher{html: `<body><h1>Loading</h1></body>`}
	d := &fakeDeliverer{}
	o := capture.NewOrchestrator(f, &recordingIndicator{}, nil, d, 0, quiet)
	w := capture.NewWatcher(linkedInURL, f, o, capture.WatchOptions{
		Interval:    5 * time.Millisecond,
		Debounce:    10 * time.Millisecond,
		ClickDelay:  5 * time.Millisecond,
		AutoCapture: true,
	}, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, d.count(), "no apply control yet")

	f.set(linkedInHTML)
	assert.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.count(), "the same control is instrumented once")
	require.Len(t, w.Targets(), 1)
	assert.Equal(t, "Apply", w.Targets()[0].Label)

	cancel()
	require.NoError(t, <-done)
}

func TestDebouncerRunsLastTriggerOnly(t *testing.T) {
	var (
		mu  sync.Mutex
		got []int
	)
	db := capture.NewDebouncer(20 * time.Millisecond)
	for i := 1; i <= 3; i++ {
		db.Trigger(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3}, got)
}

func TestDebouncerStopWaitsForRunningCall(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	db := capture.NewDebouncer(time.Millisecond)
	db.Trigger(func() {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	db.Stop()
	assert.True(t, finished.Load(), "Stop returned while the call was still running")
}

func TestDebouncerStopDropsPendingCall(t *testing.T) {
	var ran atomic.Bool
	db := capture.NewDebouncer(20 * time.Millisecond)
	db.Trigger(func() { ran.Store(true) })
	db.Stop()
	db.Trigger(func() { ran.Store(true) })

	time.Sleep(60 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestCollyFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, linkedInHTML)
	}))
	defer srv.Close()

	f := capture.NewCollyFetcher("test-agent", time.Second, 100, 5)
	page, err := f.Fetch(context.Background(), srv.URL+"/jobs/view/1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", page.Doc.Find(".topcard__org-name-link").Text())

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)

	again, err := f.Fetch(context.Background(), srv.URL+"/jobs/view/1")
	require.NoError(t, err, "the same url can be fetched repeatedly")
	assert.Equal(t, page.Body, again.Body)
}

func postMessage(t *testing.T, h http.Handler, msg capture.Message) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(body)))
	return rr
}

func TestMessageEndpoint(t *testing.T) {
	d := &fakeDeliverer{}
	o := capture.NewOrchestrator(&staticFetcher{html: linkedInHTML}, &recordingIndicator{}, store.NewMemory(), d, 0, quiet)
	mux := http.NewServeMux()
	capture.NewHandler(o).RegisterRoutes(mux)

	rr := postMessage(t, mux, capture.Message{Action: capture.ActionExtract, URL: linkedInURL})
	require.Equal(t, http.StatusOK, rr.Code)
	var er capture.ExtractReply
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er))
	require.NotNil(t, er.JobData)
	assert.Equal(t, "Acme Corp", er.JobData.Company)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pending", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	// Without jobData the pending extraction is saved.
	rr = postMessage(t, mux, capture.Message{Action: capture.ActionSave})
	require.Equal(t, http.StatusOK, rr.Code)
	var sr capture.SaveReply
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sr))
	assert.True(t, sr.Success)
	assert.Equal(t, "Acme Corp", sr.Data.Company)
	assert.Equal(t, 1, d.count())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/pending", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = postMessage(t, mux, capture.Message{Action: capture.ActionSave, JobData: &model.JobRecord{Location: "Remote"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = postMessage(t, mux, capture.Message{Action: "dance"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExtractOutsideJobSitesNeedsForce(t *testing.T) {
	f := &staticFetcher{html: linkedInHTML}
	o := capture.NewOrchestrator(f, &recordingIndicator{}, store.NewMemory(), &fakeDeliverer{}, 0, quiet)
	mux := http.NewServeMux()
	capture.NewHandler(o).RegisterRoutes(mux)

	const blogURL = "https://example.com/blog/we-are-hiring"

	rr := postMessage(t, mux, capture.Message{Action: capture.ActionExtract, URL: blogURL})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var er capture.ExtractReply
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er))
	assert.False(t, er.Supported)
	assert.Equal(t, capture.ErrUnsupportedSite.Error(), er.Error)
	assert.Zero(t, f.calls.Load(), "the page is not fetched")

	rr = postMessage(t, mux, capture.Message{Action: capture.ActionExtract, URL: blogURL, Force: true})
	require.Equal(t, http.StatusOK, rr.Code)
	er = capture.ExtractReply{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er))
	assert.False(t, er.Supported)
	require.NotNil(t, er.JobData)
	assert.Equal(t, "Software Engineer", er.JobData.Position)

	rr = postMessage(t, mux, capture.Message{Action: capture.ActionExtract, URL: linkedInURL})
	require.Equal(t, http.StatusOK, rr.Code)
	er = capture.ExtractReply{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er))
	assert.True(t, er.Supported)
}

func TestSaveDuplicateIsNotAnError(t *testing.T) {
	d := &fakeDeliverer{err: backend.ErrDuplicate}
	o := capture.NewOrchestrator(&staticFetcher{}, &recordingIndicator{}, nil, d, 0, quiet)
	mux := http.NewServeMux()
	capture.NewHandler(o).RegisterRoutes(mux)

	rr := postMessage(t, mux, capture.Message{Action: capture.ActionSave, JobData: &model.JobRecord{Company: "Acme"}})
	require.Equal(t, http.StatusOK, rr.Code)
	var sr capture.SaveReply
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sr))
	assert.False(t, sr.Success)
	assert.Equal(t, delivery.MsgDuplicate, sr.Message)
	assert.Empty(t, sr.Error)
}
