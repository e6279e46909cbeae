package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/docchat/internal/apperr"
	"github.com/nikhilbhutani/docchat/internal/llm"
)

type fakeEmbedder struct {
	calls  atomic.Int32
	err    error
	delay  time.Duration
	short  bool // return one vector fewer than asked
	models sync.Map
}

func (f *fakeEmbedder) Embed(ctx context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	f.calls.Add(1)
	f.models.Store(req.Model, true)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	n := len(req.Input)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(req.Input[i]))}
	}
	return &llm.EmbeddingResponse{Embeddings: out}, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
}

func (m *mapCache) GetVector(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) SetVector(_ context.Context, key string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = vec
	return nil
}

func TestEmbed_PreservesOrderAcrossBatches(t *testing.T) {
	fe := &fakeEmbedder{}
	svc := NewService(fe, Options{BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
	assert.Equal(t, int32(3), fe.calls.Load())
	_, ok := fe.models.Load("nomic-embed-text")
	assert.True(t, ok)
}

func TestEmbed_Empty(t *testing.T) {
	fe := &fakeEmbedder{}
	vecs, err := NewService(fe, Options{}).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Zero(t, fe.calls.Load())
}

func TestEmbed_ServiceFailure(t *testing.T) {
	svc := NewService(&fakeEmbedder{err: errors.New("connection refused")}, Options{})

	_, err := svc.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(err))
	assert.Equal(t, apperr.KindEmbedding, apperr.EventKind(err))
	assert.Equal(t, "embedding service unavailable", apperr.PublicMessage(err))
}

func TestEmbed_CountMismatch(t *testing.T) {
	svc := NewService(&fakeEmbedder{short: true}, Options{})

	_, err := svc.Embed(context.Background(), []string{"x", "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 inputs")
}

func TestEmbed_Timeout(t *testing.T) {
	svc := NewService(&fakeEmbedder{delay: time.Second}, Options{Timeout: 10 * time.Millisecond})

	_, err := svc.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, apperr.KindTimeout, apperr.EventKind(err))
}

func TestEmbedSingle_UsesCache(t *testing.T) {
	fe := &fakeEmbedder{}
	cache := &mapCache{data: map[string][]float32{}}
	svc := NewService(fe, Options{Cache: cache})

	first, err := svc.EmbedSingle(context.Background(), "notice period")
	require.NoError(t, err)
	second, err := svc.EmbedSingle(context.Background(), "notice period")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fe.calls.Load())
	assert.Len(t, cache.data, 1)
}
