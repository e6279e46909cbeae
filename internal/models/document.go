package models

import "time"

// Document is an ingested file, keyed by filename.
type Document struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Pages      int       `json:"pages"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is one retrievable slice of a document's text. Index is 0-based and
// monotonic across the whole document.
type Chunk struct {
	Filename   string `json:"filename"`
	Index      int    `json:"chunk_index"`
	Content    string `json:"content"`
	Page       int    `json:"page"`
	Offset     int    `json:"offset"`
	TokenCount int    `json:"token_count"`
}
