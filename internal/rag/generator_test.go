package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/docchat/internal/models"
	"github.com/nikhilbhutani/docchat/internal/vectorstore"
)

func result(filename string, index int, score float64) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		Chunk: models.Chunk{Filename: filename, Index: index, Content: filename},
		Score: score,
	}
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, Confidence(nil))
	assert.InDelta(t, 1.0, Confidence([]vectorstore.SearchResult{result("a", 0, 1)}), 1e-9)
	assert.InDelta(t, 0.7*0.9+0.3*0.6, Confidence([]vectorstore.SearchResult{
		result("a", 0, 0.9), result("a", 1, 0.6), result("a", 2, 0.3),
	}), 1e-9)
	assert.Zero(t, Confidence([]vectorstore.SearchResult{result("a", 0, -0.8)}))
	assert.Equal(t, 1.0, Confidence([]vectorstore.SearchResult{result("a", 0, 1.5)}))
}

func TestCitedSources(t *testing.T) {
	results := []vectorstore.SearchResult{result("a.pdf", 0, 0.9), result("a.pdf", 3, 0.8), result("b.pdf", 1, 0.7)}

	got := citedSources("See [b.pdf#1] and [a.pdf#0; a.pdf#9].", results)
	require.Len(t, got, 2)
	assert.Equal(t, "a.pdf", got[0].Chunk.Filename)
	assert.Equal(t, "b.pdf", got[1].Chunk.Filename)

	assert.Len(t, citedSources("no references here", results), 3)
	assert.Len(t, citedSources("[unknown.pdf#0]", results), 3)
}

func TestFormatCitation(t *testing.T) {
	c := models.Chunk{Filename: "guide.pdf", Index: 4, Page: 2, Content: "line one\nline   two"}
	assert.Equal(t, "guide.pdf (page 3, chunk 4): line one line two", FormatCitation(c))

	c.Content = strings.Repeat("é", 200)
	got := FormatCitation(c)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 150, strings.Count(got, "é"))
}

func TestIsRefusal(t *testing.T) {
	assert.True(t, isRefusal("I cannot find this information in the documents."))
	assert.True(t, isRefusal("Sorry, I can't find this information."))
	assert.False(t, isRefusal("The refund window is 30 days."))
}

func TestIndexer_FailedEmbeddingLeavesIndexUnchanged(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	emb := &keywordEmbedder{fallback: []float32{1, 0}}
	ix := NewIndexer(store, emb)
	ctx := context.Background()

	first := []models.Chunk{{Filename: "a.pdf", Index: 0, Content: "x"}, {Filename: "a.pdf", Index: 1, Content: "y"}}
	require.NoError(t, ix.Upsert(ctx, "a.pdf", first))

	emb.err = errors.New("embedding service down")
	err := ix.Upsert(ctx, "a.pdf", []models.Chunk{{Filename: "a.pdf", Index: 0, Content: "z"}})
	require.Error(t, err)

	counts, err := ix.ChunkCountsByFile(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.pdf": 2}, counts)
}

func TestIndexer_ReuploadReplaces(t *testing.T) {
	ix := NewIndexer(vectorstore.NewMemoryStore(), &keywordEmbedder{fallback: []float32{1}})
	ctx := context.Background()

	chunks := func(n int) []models.Chunk {
		out := make([]models.Chunk, n)
		for i := range out {
			out[i] = models.Chunk{Filename: "a.pdf", Index: i}
		}
		return out
	}
	require.NoError(t, ix.Upsert(ctx, "a.pdf", chunks(5)))
	require.NoError(t, ix.Upsert(ctx, "a.pdf", chunks(2)))
	require.NoError(t, ix.Upsert(ctx, "b.pdf", []models.Chunk{{Filename: "b.pdf"}}))

	counts, err := ix.ChunkCountsByFile(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.pdf": 2, "b.pdf": 1}, counts)

	require.NoError(t, ix.RemoveAll(ctx))
	counts, err = ix.ChunkCountsByFile(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
