package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nikhilbhutani/docchat/pkg/keylock"
)

// shard is the immutable entry set of one file. A new shard is built for
// every Replace and published with a single map store.
type shard struct {
	entries []Entry
}

// MemoryStore is a brute-force cosine index kept in process memory. Writers
// are serialized per filename; readers never block on writers.
type MemoryStore struct {
	shards sync.Map // filename -> *shard
	locks  *keylock.Locker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locks: keylock.New()}
}

func (s *MemoryStore) Replace(_ context.Context, filename string, entries []Entry) error {
	sh := &shard{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		if e.Chunk.Filename != filename {
			return fmt.Errorf("entry %d belongs to %q, not %q", i, e.Chunk.Filename, filename)
		}
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		sh.entries[i] = Entry{Chunk: e.Chunk, Embedding: vec}
	}

	unlock := s.locks.Lock(filename)
	defer unlock()

	if len(sh.entries) == 0 {
		s.shards.Delete(filename)
		return nil
	}
	s.shards.Store(filename, sh)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, filename string) error {
	unlock := s.locks.Lock(filename)
	defer unlock()
	s.shards.Delete(filename)
	return nil
}

func (s *MemoryStore) RemoveAll(ctx context.Context) error {
	var names []string
	s.shards.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	for _, name := range names {
		if err := s.Remove(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}

	var results []SearchResult
	score := func(sh *shard) {
		for _, e := range sh.entries {
			results = append(results, SearchResult{Chunk: e.Chunk, Score: Cosine(query, e.Embedding)})
		}
	}

	if opts.Filename != "" {
		if v, ok := s.shards.Load(opts.Filename); ok {
			score(v.(*shard))
		}
	} else {
		s.shards.Range(func(_, v any) bool {
			score(v.(*shard))
			return ctx.Err() == nil
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return less(results[i], results[j]) })
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

func (s *MemoryStore) ChunkCounts(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	s.shards.Range(func(k, v any) bool {
		counts[k.(string)] = len(v.(*shard).entries)
		return true
	})
	return counts, nil
}

func (s *MemoryStore) Count(_ context.Context, filename string) (int, error) {
	if filename != "" {
		v, ok := s.shards.Load(filename)
		if !ok {
			return 0, nil
		}
		return len(v.(*shard).entries), nil
	}
	n := 0
	s.shards.Range(func(_, v any) bool {
		n += len(v.(*shard).entries)
		return true
	})
	return n, nil
}
