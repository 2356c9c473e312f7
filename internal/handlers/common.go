package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/cardscanner/internal/auth"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/session"
	"github.com/lehigh-university-libraries/cardscanner/internal/sink"
	"github.com/lehigh-university-libraries/cardscanner/internal/storage"
)

// SessionFactory starts a new capture session
type SessionFactory func() *session.Controller

type Handler struct {
	sessionStore *storage.SessionStore
	gate         *auth.Gate
	newSession   SessionFactory
	rows         sink.Appender
}

// New returns the API handler. rows may be nil, in which case the tabular
// append endpoint is not served.
func New(gate *auth.Gate, newSession SessionFactory, rows sink.Appender) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		gate:         gate,
		newSession:   newSession,
		rows:         rows,
	}
}

// Register adds the API routes to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.HandleLogin)
	mux.HandleFunc("POST /api/logout", h.HandleLogout)

	mux.HandleFunc("GET /api/sessions", h.gate.Require(h.HandleListSessions))
	mux.HandleFunc("POST /api/sessions", h.gate.Require(h.HandleCreateSession))
	mux.HandleFunc("GET /api/sessions/{id}", h.gate.Require(h.HandleGetSession))
	mux.HandleFunc("GET /api/sessions/{id}/images/{slot}", h.gate.Require(h.HandleGetImage))
	mux.HandleFunc("PUT /api/sessions/{id}/images/{slot}", h.gate.Require(h.HandleCaptureImage))
	mux.HandleFunc("DELETE /api/sessions/{id}/images/{slot}", h.gate.Require(h.HandleRetakeImage))
	mux.HandleFunc("POST /api/sessions/{id}/process", h.gate.Require(h.HandleProcess))
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.gate.Require(h.HandleReset))
	mux.HandleFunc("PUT /api/sessions/{id}/record", h.gate.Require(h.HandleUpdateRecord))
	mux.HandleFunc("POST /api/sessions/{id}/save", h.gate.Require(h.HandleSave))
	mux.HandleFunc("GET /api/sessions/{id}/text/{slot}", h.gate.Require(h.HandleDownloadText))

	if h.rows != nil {
		mux.HandleFunc("POST /api/rows", h.HandleAppendRow)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeFailure maps an error class onto a status and user-facing message
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	h.writeError(w, failures.UserMessage(err), failures.HTTPStatus(err))
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return c, true
}

func (h *Handler) slotOrError(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil || (slot != 1 && slot != 2) {
		h.writeError(w, "Invalid image slot. Must be 1 or 2", http.StatusBadRequest)
		return 0, false
	}
	return slot, true
}
