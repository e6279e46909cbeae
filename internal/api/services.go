package api

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/docchat/internal/cache"
	"github.com/nikhilbhutani/docchat/internal/config"
	"github.com/nikhilbhutani/docchat/internal/document"
	"github.com/nikhilbhutani/docchat/internal/embedding"
	"github.com/nikhilbhutani/docchat/internal/llm"
	"github.com/nikhilbhutani/docchat/internal/memory"
	"github.com/nikhilbhutani/docchat/internal/metrics"
	"github.com/nikhilbhutani/docchat/internal/rag"
	"github.com/nikhilbhutani/docchat/internal/vectorstore"
	"github.com/nikhilbhutani/docchat/pkg/chunker"
)

// Services is everything the routes depend on. DB and Redis may be nil.
type Services struct {
	Documents     *document.Service
	Engine        *rag.Engine
	Conversations memory.Store
	Metrics       *metrics.Store
	DB            *pgxpool.Pool
	Redis         *redis.Client
}

// NewServices builds the service graph for the configured backends. sink may
// be nil; when set, every metrics record is also published to it.
func NewServices(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, sink metrics.Sink) (*Services, error) {
	gw := llm.NewGateway(cfg.LLM)

	var queryCache embedding.QueryCache
	if rdb != nil && cfg.LLM.EmbeddingCacheTTL > 0 {
		queryCache = cache.NewCache(rdb, cfg.LLM.EmbeddingCacheTTL)
	}
	embedSvc := embedding.NewService(gw, embedding.Options{
		Provider:  cfg.LLM.EmbeddingProvider,
		Model:     cfg.LLM.EmbeddingModel,
		BatchSize: cfg.LLM.EmbeddingBatchSize,
		Timeout:   cfg.LLM.EmbeddingTimeout,
		Cache:     queryCache,
	})

	var vs vectorstore.VectorStore
	switch cfg.Backends.VectorStore {
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("vector backend pgvector needs a database")
		}
		vs = vectorstore.NewPgVectorStore(db)
	default:
		vs = vectorstore.NewMemoryStore()
	}

	var conversations memory.Store
	switch cfg.Backends.Conversations {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("conversation backend redis needs a redis client")
		}
		conversations = memory.NewRedisStore(rdb, cfg.Memory.SessionTTL)
	default:
		conversations = memory.NewBufferStore(cfg.Memory.MaxTurns)
	}

	metricsStore := metrics.NewStore(metrics.Options{
		RecentInteractions: cfg.Metrics.RecentInteractions,
		RecentErrors:       cfg.Metrics.RecentErrors,
		Sink:               sink,
	})

	indexer := rag.NewIndexer(vs, embedSvc)
	ingestor := document.NewIngestor(chunker.ChunkOptions{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		Strategy:     "recursive",
	})
	docs := document.NewService(ingestor, indexer, metricsStore, []string{".pdf"})

	retriever := rag.NewRetriever(vs, embedSvc, cfg.RAG.TopK)
	engine := rag.NewEngine(retriever, gw, conversations, metricsStore, rag.EngineOptions{
		Provider:         cfg.LLM.DefaultProvider,
		Model:            cfg.LLM.DefaultModel,
		Temperature:      0,
		HistoryTurns:     cfg.RAG.HistoryTurns,
		RefusalThreshold: cfg.RAG.RefusalThreshold,
		GenerateTimeout:  cfg.LLM.Timeout,
		RememberRefusals: cfg.Memory.RememberRefusals,
		RememberFailures: cfg.Memory.RememberFailures,
	})

	return &Services{
		Documents:     docs,
		Engine:        engine,
		Conversations: conversations,
		Metrics:       metricsStore,
		DB:            db,
		Redis:         rdb,
	}, nil
}
