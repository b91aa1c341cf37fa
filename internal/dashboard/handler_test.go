package dashboard_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/dashboard"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

func newMux(api *fakeAPI) (*http.ServeMux, *dashboard.DataLayer) {
	d := dashboard.NewDataLayer(api, store.NewMemory(), slog.Default())
	mux := http.NewServeMux()
	dashboard.NewHandler(d).RegisterRoutes(mux)
	return mux, d
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndList(t *testing.T) {
	mux, _ := newMux(&fakeAPI{})

	rec := serve(mux, http.MethodPost, "/applications", `{"company":"Acme","position":"Engineer"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(mux, http.MethodPost, "/applications", `{"company":"acme","position":"ENGINEER"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(mux, http.MethodGet, "/applications?status=Applied&search=acm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Applications []model.JobRecord `json:"applications"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out.Applications, 1)
	assert.Equal(t, "srv-1", out.Applications[0].ID)

	rec = serve(mux, http.MethodGet, "/applications?status=Pending", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdateDeleteOffline(t *testing.T) {
	api := &fakeAPI{down: true}
	mux, d := newMux(api)

	created, err := d.Add(context.Background(), model.JobRecord{Company: "Acme", Position: "Engineer"})
	require.NoError(t, err)

	rec := serve(mux, http.MethodPut, "/applications/"+created.ID, `{"status":"Offer"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusOffer, d.Applications()[0].Status)

	rec = serve(mux, http.MethodPut, "/applications/"+created.ID, `{"appliedDate":"19/10/2026"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodPut, "/applications/nope", `{"notes":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(mux, http.MethodDelete, "/applications/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, d.Applications())
}

func TestHandlerInbox(t *testing.T) {
	mux, d := newMux(&fakeAPI{})

	env, _ := json.Marshal(model.NewEnvelope(model.JobRecord{Company: "Acme", Position: "Engineer"}))
	rec := serve(mux, http.MethodPost, "/inbox", string(env))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, d.Applications(), 1)

	rec = serve(mux, http.MethodPost, "/inbox", string(env))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"added":false`)
	assert.Len(t, d.Applications(), 1)

	rec = serve(mux, http.MethodPost, "/inbox", `{"type":"PING"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerStatsAndHealth(t *testing.T) {
	mux, d := newMux(&fakeAPI{})
	_, err := d.Load(context.Background())
	require.NoError(t, err)

	rec := serve(mux, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`)

	rec = serve(mux, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":true`)
}
