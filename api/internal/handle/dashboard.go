package handle

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// userID resolves the optional ?user_id= query param, falling back to
// the configured default.
func (h *Handle) userID(r *http.Request) int64 {
	if v := r.URL.Query().Get("user_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return h.pipe.UserID
}

// Dashboard handles GET /v1/dashboard.
func (h *Handle) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	snap, err := h.dash.Snapshot(r.Context(), h.userID(r))
	if err != nil {
		h.logger.Error("dashboard snapshot failed", zap.Error(err))
		http.Error(w, "dashboard error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// History handles GET /v1/history.
func (h *Handle) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	events, err := h.history.ListByUser(r.Context(), h.userID(r))
	if err != nil {
		h.logger.Error("history listing failed", zap.Error(err))
		http.Error(w, "history error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type interactionRequest struct {
	LLMName      string `json:"llm_name"`
	MedicineName string `json:"medicine_name"`
	UserID       int64  `json:"user_id,omitempty"`
}

type interactionResponse struct {
	MedicineName string   `json:"medicine_name"`
	Safe         bool     `json:"safe"`
	Conflicts    []string `json:"conflicts,omitempty"`
}

// CheckInteractions handles POST /v1/interactions/check.
func (h *Handle) CheckInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.MedicineName == "" {
		http.Error(w, "medicine_name is required", http.StatusBadRequest)
		return
	}
	eng, err := h.engs.GetEngine(req.LLMName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conflicts, err := h.pipe.ForUser(req.UserID).CheckInteractions(r.Context(), eng, req.MedicineName)
	if err != nil {
		http.Error(w, "interaction check error: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, interactionResponse{
		MedicineName: req.MedicineName,
		Safe:         len(conflicts) == 0,
		Conflicts:    conflicts,
	})
}
