package rag

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/docchat/internal/models"
	"github.com/nikhilbhutani/docchat/internal/vectorstore"
)

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer embeds chunks and stores them per filename.
type Indexer struct {
	store    vectorstore.VectorStore
	embedder Embedder
}

func NewIndexer(store vectorstore.VectorStore, embedder Embedder) *Indexer {
	return &Indexer{store: store, embedder: embedder}
}

// Upsert embeds every chunk first and only then swaps the filename's entries,
// so an embedding failure leaves the index untouched.
func (ix *Indexer) Upsert(ctx context.Context, filename string, chunks []models.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks))
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorstore.Entry{Chunk: c, Embedding: vecs[i]}
	}

	// Once embeddings exist the swap must complete even if the caller goes
	// away; a cancelled request would otherwise leave a stale document.
	if err := ix.store.Replace(context.WithoutCancel(ctx), filename, entries); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

func (ix *Indexer) Remove(ctx context.Context, filename string) error {
	return ix.store.Remove(ctx, filename)
}

func (ix *Indexer) RemoveAll(ctx context.Context) error {
	return ix.store.RemoveAll(ctx)
}

func (ix *Indexer) ChunkCountsByFile(ctx context.Context) (map[string]int, error) {
	return ix.store.ChunkCounts(ctx)
}
