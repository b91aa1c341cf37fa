package dashboard

// Routes:
//
//	GET    /applications?search=&status=   → filtered list
//	POST   /applications                   → create (backend, else mirror)
//	PUT    /applications/{id}              → partial update
//	DELETE /applications/{id}              → delete
//	GET    /stats                          → counts by status
//	POST   /inbox                          → envelope delivered by capture
//	GET    /health                         → liveness + backend reachability

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobtracker/internal/model"
)

// Handler exposes a DataLayer over HTTP.
type Handler struct {
	layer *DataLayer
}

// NewHandler returns a configured Handler.
func NewHandler(layer *DataLayer) *Handler {
	return &Handler{layer: layer}
}

// RegisterRoutes mounts the dashboard routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /applications", h.listApplications)
	mux.HandleFunc("POST /applications", h.createApplication)
	mux.HandleFunc("PUT /applications/{id}", h.updateApplication)
	mux.HandleFunc("DELETE /applications/{id}", h.deleteApplication)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("POST /inbox", h.inbox)
	mux.HandleFunc("GET /health", h.health)
}

// ─── Applications ─────────────────────────────────────────────────────────────

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status model.Status
	if raw := q.Get("status"); raw != "" && raw != "All" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = st
	}

	jsonOK(w, map[string]any{"applications": h.layer.Filter(q.Get("search"), status)})
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var rec model.JobRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	created, err := h.layer.Add(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonWrite(w, http.StatusCreated, map[string]any{"data": created})
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	var patch model.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	updated, err := h.layer.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, map[string]any{"data": updated})
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.layer.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, map[string]bool{"success": true})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, h.layer.Stats())
}

// ─── Delivery from capture ────────────────────────────────────────────────────

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	var env model.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if env.Type != model.TypeJobApplicationData {
		jsonError(w, "unsupported message type "+string(env.Type), http.StatusBadRequest)
		return
	}

	added, err := h.layer.Receive(r.Context(), env.JobData)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonWrite(w, http.StatusAccepted, map[string]bool{"success": true, "added": added})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]any{
		"status":  "ok",
		"service": "dashboard",
		"backend": h.layer.Online(),
	})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// writeError maps data-layer errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	case errors.Is(err, ErrDuplicate):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonWrite(w, http.StatusOK, v)
}

func jsonWrite(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonWrite(w, code, map[string]string{"error": msg})
}
