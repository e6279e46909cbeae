package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/docchat/internal/apperr"
	"github.com/nikhilbhutani/docchat/internal/llm"
)

const maxInflightBatches = 4

// Embedder is the slice of llm.Gateway the service needs.
type Embedder interface {
	Embed(ctx context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error)
}

// QueryCache stores query embeddings. Misses return ok=false with a nil error.
type QueryCache interface {
	GetVector(ctx context.Context, key string) (vec []float32, ok bool, err error)
	SetVector(ctx context.Context, key string, vec []float32) error
}

type Options struct {
	Provider  string
	Model     string
	BatchSize int
	Timeout   time.Duration
	Cache     QueryCache
}

type Service struct {
	embedder  Embedder
	provider  string
	model     string
	batchSize int
	timeout   time.Duration
	cache     QueryCache
}

func NewService(e Embedder, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = "nomic-embed-text"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	return &Service{
		embedder:  e,
		provider:  opts.Provider,
		model:     opts.Model,
		batchSize: opts.BatchSize,
		timeout:   opts.Timeout,
		cache:     opts.Cache,
	}
}

func (s *Service) Model() string { return s.model }

// Embed returns one vector per text, in input order. The whole call shares a
// single deadline; exceeding it yields an EmbeddingServiceError whose cause is
// context.DeadlineExceeded.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflightBatches)

	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		g.Go(func() error {
			resp, err := s.embedder.Embed(gctx, llm.EmbeddingRequest{
				Provider: s.provider,
				Model:    s.model,
				Input:    texts[start:end],
			})
			if err != nil {
				return fmt.Errorf("embed batch %d: %w", start/s.batchSize, err)
			}
			if len(resp.Embeddings) != end-start {
				return fmt.Errorf("embed batch %d: got %d vectors for %d inputs", start/s.batchSize, len(resp.Embeddings), end-start)
			}
			copy(out[start:end], resp.Embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// errgroup cancels gctx on first failure, so surface the parent's
		// deadline when that is what actually happened.
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return nil, apperr.Embedding(err, "embedding service unavailable")
	}
	return out, nil
}

// EmbedSingle embeds one query, consulting the cache first when configured.
func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	key := s.cacheKey(text)
	if s.cache != nil {
		vec, ok, err := s.cache.GetVector(ctx, key)
		if err != nil {
			slog.Warn("embedding cache get failed", "error", err)
		} else if ok {
			return vec, nil
		}
	}

	embeddings, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetVector(ctx, key, embeddings[0]); err != nil {
			slog.Warn("embedding cache set failed", "error", err)
		}
	}
	return embeddings[0], nil
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}
