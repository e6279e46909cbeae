package models

import "time"

// Interaction records one completed chat exchange. Never mutated.
type Interaction struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	Citations    []string  `json:"citations"`
	LatencyMs    int64     `json:"latency_ms"`
	TokensInput  int       `json:"tokens_input"`
	TokensOutput int       `json:"tokens_output"`
	TokensTotal  int       `json:"tokens_total"`
	Confidence   float64   `json:"confidence"`
	Model        string    `json:"model"`
	WasRefused   bool      `json:"was_refused"`
	FilterUsed   string    `json:"filter_used,omitempty"`
	CostUSD      float64   `json:"cost_usd"`
}

// ErrorEvent records one failed interaction or upload. Never mutated.
type ErrorEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      string            `json:"type"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
}
