package handlers

import (
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/docchat/internal/auth"
	"github.com/nikhilbhutani/docchat/internal/memory"
	"github.com/nikhilbhutani/docchat/internal/models"
	"github.com/nikhilbhutani/docchat/internal/rag"
)

type ConversationHandler struct {
	store memory.Store
}

func NewConversationHandler(store memory.Store) *ConversationHandler {
	return &ConversationHandler{store: store}
}

type conversationResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []models.Turn `json:"turns"`
	Count     int           `json:"count"`
}

// Get returns the calling session's history, oldest first. ?limit keeps only
// the most recent turns.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r.Context(), "", rag.DefaultSessionID)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	turns, err := h.store.History(r.Context(), sessionID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse{SessionID: sessionID, Turns: turns, Count: len(turns)})
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r.Context(), "", rag.DefaultSessionID)
	if err := h.store.Clear(r.Context(), sessionID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "conversation cleared for session " + sessionID})
}
