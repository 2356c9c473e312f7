package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/cardscanner/internal/sink"
)

// HandleAppendRow is the self-hosted tabular append endpoint. It accepts the
// same payload the webhook sink sends and writes it through the configured
// appender, which assigns the timestamp and serializes concurrent writes.
func (h *Handler) HandleAppendRow(w http.ResponseWriter, r *http.Request) {
	var payload sink.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeJSONStatus(w, map[string]string{"status": "error", "message": "Invalid JSON: " + err.Error()}, http.StatusBadRequest)
		return
	}

	if err := h.rows.Append(r.Context(), payload); err != nil {
		slog.Error("Failed to append row", "err", err)
		h.writeJSONStatus(w, map[string]string{"status": "error", "message": err.Error()}, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]string{"status": "success"})
}
