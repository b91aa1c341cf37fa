package capture

// Routes:
//
//	POST /messages   → {action:"extractJobData", url, force?} | {action:"saveJobData", jobData?}
//	GET  /pending    → last extraction not yet saved
//	GET  /state      → {"state": "idle"|"extracting"}

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobtracker/internal/backend"
	"jobtracker/internal/extract"
	"jobtracker/internal/model"
	"jobtracker/internal/store"
)

// ─── Message types ────────────────────────────────────────────────────────────

// Actions accepted on /messages.
const (
	ActionExtract = "extractJobData"
	ActionSave    = "saveJobData"
)

// Message is a request to the capture daemon.
type Message struct {
	Action  string           `json:"action"`
	URL     string           `json:"url,omitempty"`
	JobData *model.JobRecord `json:"jobData,omitempty"`
	// Force extracts a page that is not on a supported job site.
	Force bool `json:"force,omitempty"`
}

// ExtractReply answers extractJobData.
type ExtractReply struct {
	JobData   *model.JobRecord `json:"jobData,omitempty"`
	Supported bool             `json:"supported"`
	Error     string           `json:"error,omitempty"`
}

// ErrUnsupportedSite rejects an extract request for a page outside the
// known job sites unless it is forced.
var ErrUnsupportedSite = errors.New("not a supported job site; navigate to a job posting or extract anyway")

// SaveReply answers saveJobData.
type SaveReply struct {
	Success bool             `json:"success"`
	Data    *model.JobRecord `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
	Tier    string           `json:"tier,omitempty"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler exposes an Orchestrator over HTTP.
type Handler struct {
	orch *Orchestrator
}

// NewHandler returns a configured Handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// RegisterRoutes mounts the capture routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /messages", h.handleMessage)
	mux.HandleFunc("GET /pending", h.handlePending)
	mux.HandleFunc("GET /state", h.handleState)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	switch msg.Action {
	case ActionExtract:
		h.extract(w, r, msg)
	case ActionSave:
		h.save(w, r, msg)
	default:
		jsonError(w, "unknown action "+msg.Action, http.StatusBadRequest)
	}
}

func (h *Handler) extract(w http.ResponseWriter, r *http.Request, msg Message) {
	if msg.URL == "" {
		jsonError(w, "url is required", http.StatusBadRequest)
		return
	}

	supported := extract.IsJobSite(msg.URL)
	if !supported && !msg.Force {
		jsonWrite(w, http.StatusUnprocessableEntity, ExtractReply{Error: ErrUnsupportedSite.Error()})
		return
	}

	rec, err := h.orch.Extract(r.Context(), msg.URL)
	switch {
	case errors.Is(err, ErrAlreadyExtracting):
		jsonWrite(w, http.StatusConflict, ExtractReply{Supported: supported, Error: err.Error()})
	case errors.Is(err, ErrNoJobData):
		jsonWrite(w, http.StatusUnprocessableEntity, ExtractReply{JobData: &rec, Supported: supported, Error: err.Error()})
	case err != nil:
		jsonWrite(w, http.StatusBadGateway, ExtractReply{Supported: supported, Error: err.Error()})
	default:
		jsonOK(w, ExtractReply{JobData: &rec, Supported: supported})
	}
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, msg Message) {
	var rec model.JobRecord
	if msg.JobData != nil {
		rec = *msg.JobData
	} else {
		pending, err := h.orch.Pending(r.Context())
		if err != nil {
			jsonWrite(w, http.StatusBadRequest, SaveReply{Error: "no job data to save"})
			return
		}
		rec = pending
	}

	res, err := h.orch.Save(r.Context(), rec)
	var ve *model.ValidationError
	switch {
	case errors.Is(err, backend.ErrDuplicate):
		// Not a failure from the user's point of view.
		jsonOK(w, SaveReply{Success: false, Message: res.Message, Tier: string(res.Tier)})
	case errors.As(err, &ve):
		jsonWrite(w, http.StatusBadRequest, SaveReply{Error: ve.Msg})
	case err != nil:
		jsonWrite(w, http.StatusServiceUnavailable, SaveReply{Error: err.Error()})
	default:
		jsonOK(w, SaveReply{Success: true, Data: &res.Data, Message: res.Message, Tier: string(res.Tier)})
	}
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	rec, err := h.orch.Pending(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "nothing pending", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "store error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, rec)
}

func (h *Handler) handleState(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{"state": h.orch.State().String()})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

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
