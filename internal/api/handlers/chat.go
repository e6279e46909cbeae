package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/docchat/internal/auth"
	"github.com/nikhilbhutani/docchat/internal/rag"
)

type ChatHandler struct {
	engine *rag.Engine
}

func NewChatHandler(engine *rag.Engine) *ChatHandler {
	return &ChatHandler{engine: engine}
}

type chatRequest struct {
	Question       string `json:"question"`
	SessionID      string `json:"session_id"`
	FilterFilename string `json:"filter_filename,omitempty"`
	UseHistory     *bool  `json:"use_history,omitempty"`
}

type sourceRef struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
}

type chatMetadata struct {
	Confidence   float64     `json:"confidence"`
	TokensTotal  int         `json:"tokens_total"`
	TokensInput  int         `json:"tokens_input"`
	TokensOutput int         `json:"tokens_output"`
	LatencyMs    int64       `json:"latency_ms"`
	Model        string      `json:"model"`
	Refused      bool        `json:"refused"`
	SessionID    string      `json:"session_id"`
	Sources      []sourceRef `json:"sources"`
}

type chatResponse struct {
	Answer    string       `json:"answer"`
	Citations []string     `json:"citations"`
	Metadata  chatMetadata `json:"metadata"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	useHistory := true
	if req.UseHistory != nil {
		useHistory = *req.UseHistory
	}
	sessionID := auth.SessionID(r.Context(), req.SessionID, rag.DefaultSessionID)

	res, err := h.engine.Chat(r.Context(), rag.ChatRequest{
		Question:       req.Question,
		SessionID:      sessionID,
		FilterFilename: req.FilterFilename,
		UseHistory:     useHistory,
	})
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away; nobody is listening for a body.
			return
		}
		writeError(w, r, err)
		return
	}

	citations := res.Citations
	if citations == nil {
		citations = []string{}
	}
	sources := make([]sourceRef, 0, len(res.Sources))
	for _, s := range res.Sources {
		sources = append(sources, sourceRef{
			Filename:   s.Chunk.Filename,
			ChunkIndex: s.Chunk.Index,
			Page:       s.Chunk.Page + 1,
			Score:      s.Score,
		})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:    res.Answer,
		Citations: citations,
		Metadata: chatMetadata{
			Confidence:   res.Confidence,
			TokensTotal:  res.TokensTotal,
			TokensInput:  res.TokensInput,
			TokensOutput: res.TokensOutput,
			LatencyMs:    res.LatencyMs,
			Model:        res.Model,
			Refused:      res.Refused,
			SessionID:    sessionID,
			Sources:      sources,
		},
	})
}
