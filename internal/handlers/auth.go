package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/cardscanner/internal/auth"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
)

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.gate.Login(request.Username, request.Password)
	if err != nil {
		if errors.Is(err, failures.ErrInvalidCredential) {
			h.writeError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		h.writeFailure(w, err)
		return
	}

	auth.SetCookie(w, token)
	slog.Info("User logged in", "username", request.Username)
	h.writeJSON(w, map[string]any{"authenticated": true})
}

// HandleLogout ends every login and discards all in-memory sessions
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.gate.Logout()
	n := h.sessionStore.Clear()
	auth.ClearCookie(w)
	slog.Info("User logged out", "sessions_cleared", n)
	h.writeJSON(w, map[string]any{"authenticated": false})
}
