package handlers

import (
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/docchat/internal/metrics"
	"github.com/nikhilbhutani/docchat/internal/models"
)

type MetricsHandler struct {
	store *metrics.Store
}

func NewMetricsHandler(store *metrics.Store) *MetricsHandler {
	return &MetricsHandler{store: store}
}

func (h *MetricsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

type historyResponse struct {
	SessionID    string               `json:"session_id,omitempty"`
	Interactions []models.Interaction `json:"interactions"`
	Count        int                  `json:"count"`
}

// History lists recorded interactions newest first. session_id narrows the
// list to one session; limit defaults to 50.
func (h *MetricsHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeDetail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessionID := q.Get("session_id")
	items := h.store.History(sessionID, limit)
	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Interactions: items, Count: len(items)})
}
