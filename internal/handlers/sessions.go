package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
)

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.List()
	sessionList := make([]models.SessionState, 0, len(sessions))
	for _, c := range sessions {
		sessionList = append(sessionList, c.Snapshot())
	}
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	c := h.newSession()
	h.sessionStore.Add(c)
	h.writeJSONStatus(w, c.Snapshot(), http.StatusCreated)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, c.Snapshot())
}

// HandleProcess runs extraction through save. The work is detached from the
// request context so a dropped connection does not abort it midway.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	state, err := c.Process(context.WithoutCancel(r.Context()))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, state)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := c.Reset(); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, c.Snapshot())
}

func (h *Handler) HandleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var record models.MergedRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := c.UpdateRecord(record); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, c.Snapshot())
}

// HandleSave retries a failed save with the current record
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	state, err := c.RetrySave(context.WithoutCancel(r.Context()))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, state)
}

// HandleDownloadText serves the raw text read from one card side
func (h *Handler) HandleDownloadText(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	slot, ok := h.slotOrError(w, r)
	if !ok {
		return
	}

	fields, ok := c.Extracted(slot)
	if !ok {
		h.writeError(w, "No extracted text for this image", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="extracted-text-%d.txt"`, slot))
	_, _ = w.Write([]byte(fields.FullText))
}
