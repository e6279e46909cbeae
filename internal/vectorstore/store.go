package vectorstore

import (
	"context"
	"math"

	"github.com/nikhilbhutani/docchat/internal/models"
)

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk     models.Chunk
	Embedding []float32
}

type SearchOptions struct {
	Filename string // exact match; empty searches every file
	TopK     int
}

type SearchResult struct {
	Chunk models.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// VectorStore holds the (chunk, embedding) pairs of every live document.
// Replace swaps a filename's entries atomically: readers see either the old
// set or the new one, never a mix.
type VectorStore interface {
	Replace(ctx context.Context, filename string, entries []Entry) error
	Remove(ctx context.Context, filename string) error
	RemoveAll(ctx context.Context) error
	SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	ChunkCounts(ctx context.Context) (map[string]int, error)
	// Count returns the number of entries for filename, or for all files
	// when filename is empty.
	Count(ctx context.Context, filename string) (int, error)
}

// Cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero magnitude or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// less orders results by descending score, then ascending chunk index, then
// filename.
func less(a, b SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Chunk.Index != b.Chunk.Index {
		return a.Chunk.Index < b.Chunk.Index
	}
	return a.Chunk.Filename < b.Chunk.Filename
}
