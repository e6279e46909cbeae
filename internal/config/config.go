package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	RAG      RAGConfig
	Memory   MemoryConfig
	Metrics  MetricsConfig
	Backends BackendsConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	SessionJWTSecret string // empty disables bearer-token sessions
	SessionHeader    string
}

type LLMConfig struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
	Timeout          time.Duration

	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingTimeout   time.Duration
	EmbeddingBatchSize int
	EmbeddingCacheTTL  time.Duration
}

type RAGConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	HistoryTurns     int
	RefusalThreshold float64
}

type MemoryConfig struct {
	RememberRefusals bool
	RememberFailures bool
	SessionTTL       time.Duration // 0 = sessions never expire
	MaxTurns         int           // 0 = keep every turn
}

type MetricsConfig struct {
	RecentInteractions int
	RecentErrors       int
}

type BackendsConfig struct {
	VectorStore    string // "memory" or "pgvector"
	Conversations  string // "memory" or "redis"
	MetricsArchive bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           p.envInt("SERVER_PORT", 8000),
			MaxUploadBytes: int64(p.envInt("MAX_UPLOAD_MB", 32)) << 20,
			RateLimitRPS:   p.envFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst: p.envInt("RATE_LIMIT_BURST", 40),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       p.envInt("DB_MAX_CONNS", 20),
			MinConns:       p.envInt("DB_MIN_CONNS", 2),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.envInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),
			SessionHeader:    getEnv("SESSION_HEADER", "X-Session-ID"),
		},
		LLM: LLMConfig{
			OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
			AnthropicKey:       getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:          getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			DefaultProvider:    getEnv("LLM_DEFAULT_PROVIDER", "ollama"),
			DefaultModel:       getEnv("LLM_DEFAULT_MODEL", "llama3.2"),
			FallbackProvider:   getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:         p.envInt("LLM_MAX_RETRIES", 0),
			Timeout:            p.envDuration("LLM_TIMEOUT", 60*time.Second),
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingTimeout:   p.envDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			EmbeddingBatchSize: p.envInt("EMBEDDING_BATCH_SIZE", 64),
			EmbeddingCacheTTL:  p.envDuration("EMBEDDING_CACHE_TTL", time.Hour),
		},
		RAG: RAGConfig{
			ChunkSize:        p.envInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:     p.envInt("RAG_CHUNK_OVERLAP", 100),
			TopK:             p.envInt("RAG_TOP_K", 3),
			HistoryTurns:     p.envInt("RAG_HISTORY_TURNS", 6),
			RefusalThreshold: p.envFloat("RAG_REFUSAL_THRESHOLD", 0.3),
		},
		Memory: MemoryConfig{
			RememberRefusals: p.envBool("MEMORY_REMEMBER_REFUSALS", false),
			RememberFailures: p.envBool("MEMORY_REMEMBER_FAILURES", false),
			SessionTTL:       p.envDuration("SESSION_TTL", 0),
			MaxTurns:         p.envInt("MEMORY_MAX_TURNS", 0),
		},
		Metrics: MetricsConfig{
			RecentInteractions: p.envInt("METRICS_RECENT_INTERACTIONS", 10),
			RecentErrors:       p.envInt("METRICS_RECENT_ERRORS", 5),
		},
		Backends: BackendsConfig{
			VectorStore:    getEnv("VECTOR_BACKEND", "memory"),
			Conversations:  getEnv("CONVERSATION_BACKEND", "memory"),
			MetricsArchive: p.envBool("METRICS_ARCHIVE", false),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var problems []string

	switch c.Backends.VectorStore {
	case "memory":
	case "pgvector":
		if c.Database.URL == "" {
			problems = append(problems, "VECTOR_BACKEND=pgvector requires DATABASE_URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown VECTOR_BACKEND %q", c.Backends.VectorStore))
	}

	switch c.Backends.Conversations {
	case "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("unknown CONVERSATION_BACKEND %q", c.Backends.Conversations))
	}

	if c.RAG.ChunkSize <= 0 {
		problems = append(problems, "RAG_CHUNK_SIZE must be positive")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		problems = append(problems, "RAG_CHUNK_OVERLAP must be in [0, RAG_CHUNK_SIZE)")
	}
	if c.RAG.TopK <= 0 {
		problems = append(problems, "RAG_TOP_K must be positive")
	}
	if c.RAG.RefusalThreshold < 0 || c.RAG.RefusalThreshold > 1 {
		problems = append(problems, "RAG_REFUSAL_THRESHOLD must be in [0, 1]")
	}
	if c.Backends.MetricsArchive && c.Database.URL == "" {
		problems = append(problems, "METRICS_ARCHIVE requires DATABASE_URL")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs *[]error
}

func (p parser) fail(key string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
}

func (p parser) envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return n
}

func (p parser) envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return f
}

func (p parser) envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return b
}

func (p parser) envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return d
}
