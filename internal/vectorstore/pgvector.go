package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorStore keeps entries in the document_chunks table. Each Replace runs
// in one transaction guarded by a per-filename advisory lock, so concurrent
// readers only ever see committed sets.
type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) Replace(ctx context.Context, filename string, entries []Entry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", filename); err != nil {
		return fmt.Errorf("lock %s: %w", filename, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM document_chunks WHERE filename = $1", filename); err != nil {
		return fmt.Errorf("clear %s: %w", filename, err)
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		c := e.Chunk
		if c.Filename != filename {
			return fmt.Errorf("chunk %d belongs to %q, not %q", c.Index, c.Filename, filename)
		}
		batch.Queue(
			`INSERT INTO document_chunks (filename, chunk_index, content, page, char_offset, token_count, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.Filename, c.Index, c.Content, c.Page, c.Offset, c.TokenCount, pgvector.NewVector(e.Embedding),
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert chunks for %s: %w", filename, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) Remove(ctx context.Context, filename string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", filename); err != nil {
		return fmt.Errorf("lock %s: %w", filename, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM document_chunks WHERE filename = $1", filename); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	return tx.Commit(ctx)
}

func (s *PgVectorStore) RemoveAll(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM document_chunks"); err != nil {
		return fmt.Errorf("delete all chunks: %w", err)
	}
	return nil
}

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}

	embedding := pgvector.NewVector(query)

	rows, err := s.db.Query(ctx,
		`SELECT filename, chunk_index, content, page, char_offset, token_count,
		        1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE $2 = '' OR filename = $2
		 ORDER BY embedding <=> $1, chunk_index, filename
		 LIMIT $3`,
		embedding, opts.Filename, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		c := &r.Chunk
		if err := rows.Scan(&c.Filename, &c.Index, &c.Content, &c.Page, &c.Offset, &c.TokenCount, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}

func (s *PgVectorStore) ChunkCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx, "SELECT filename, count(*) FROM document_chunks GROUP BY filename")
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

func (s *PgVectorStore) Count(ctx context.Context, filename string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		"SELECT count(*) FROM document_chunks WHERE $1 = '' OR filename = $1", filename,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
