package rag

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/docchat/internal/vectorstore"
)

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	store    vectorstore.VectorStore
	embedder QueryEmbedder
	topK     int
}

func NewRetriever(store vectorstore.VectorStore, embedder QueryEmbedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{store: store, embedder: embedder, topK: topK}
}

// Retrieve returns the topK chunks most similar to query, restricted to
// filename when it is non-empty. Nothing to search is not an error: the
// result is simply empty and the embedding service is not called.
func (r *Retriever) Retrieve(ctx context.Context, query, filename string) ([]vectorstore.SearchResult, error) {
	n, err := r.store.Count(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := r.store.SimilaritySearch(ctx, queryVec, vectorstore.SearchOptions{
		Filename: filename,
		TopK:     r.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}
