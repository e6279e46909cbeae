package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/docchat/internal/models"
)

func entries(filename string, vecs ...[]float32) []Entry {
	out := make([]Entry, len(vecs))
	for i, v := range vecs {
		out[i] = Entry{
			Chunk:     models.Chunk{Filename: filename, Index: i, Content: fmt.Sprintf("%s-%d", filename, i)},
			Embedding: v,
		}
	}
	return out
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 0}))
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "b.pdf", entries("b.pdf", []float32{1, 0}, []float32{0, 1})))
	require.NoError(t, s.Replace(ctx, "a.pdf", entries("a.pdf", []float32{1, 0}, []float32{1, 1})))

	results, err := s.SimilaritySearch(ctx, []float32{1, 0}, SearchOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// a.pdf#0 and b.pdf#0 tie on score and index; filename breaks the tie.
	assert.Equal(t, "a.pdf", results[0].Chunk.Filename)
	assert.Equal(t, 0, results[0].Chunk.Index)
	assert.Equal(t, "b.pdf", results[1].Chunk.Filename)
	assert.Equal(t, 0, results[1].Chunk.Index)
	assert.Equal(t, "a.pdf", results[2].Chunk.Filename)
	assert.Equal(t, 1, results[2].Chunk.Index)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestMemoryStore_FilterNeverCrossesFiles(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "a.pdf", entries("a.pdf", []float32{0, 1})))
	require.NoError(t, s.Replace(ctx, "b.pdf", entries("b.pdf", []float32{1, 0}, []float32{1, 0.1})))

	results, err := s.SimilaritySearch(ctx, []float32{1, 0}, SearchOptions{Filename: "a.pdf", TopK: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.pdf", results[0].Chunk.Filename)

	results, err = s.SimilaritySearch(ctx, []float32{1, 0}, SearchOptions{Filename: "missing.pdf"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_ReplaceDoesNotAccumulate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, "a.pdf", entries("a.pdf", []float32{1}, []float32{1}, []float32{1})))
	require.NoError(t, s.Replace(ctx, "a.pdf", entries("a.pdf", []float32{1})))

	counts, err := s.ChunkCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.pdf": 1}, counts)
}

func TestMemoryStore_ReplaceRejectsForeignEntries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, "a.pdf", entries("a.pdf", []float32{1})))

	err := s.Replace(ctx, "a.pdf", entries("b.pdf", []float32{1}))
	require.Error(t, err)

	n, err := s.Count(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_RemoveAndRemoveAll(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, "a.pdf", entries("a.pdf", []float32{1})))
	require.NoError(t, s.Replace(ctx, "b.pdf", entries("b.pdf", []float32{1}, []float32{1})))

	require.NoError(t, s.Remove(ctx, "a.pdf"))
	n, err := s.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.RemoveAll(ctx))
	counts, err := s.ChunkCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	results, err := s.SimilaritySearch(ctx, []float32{1}, SearchOptions{Filename: "b.pdf"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_ConcurrentReplaceIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	small := entries("a.pdf", []float32{1}, []float32{1})
	large := entries("a.pdf", []float32{1}, []float32{1}, []float32{1}, []float32{1}, []float32{1})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, s.Replace(ctx, "a.pdf", small))
			} else {
				assert.NoError(t, s.Replace(ctx, "a.pdf", large))
			}
		}()
		go func() {
			defer wg.Done()
			results, err := s.SimilaritySearch(ctx, []float32{1}, SearchOptions{Filename: "a.pdf", TopK: 10})
			assert.NoError(t, err)
			assert.Contains(t, []int{0, len(small), len(large)}, len(results))
		}()
	}
	wg.Wait()
}
