package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nikhilbhutani/docchat/internal/apperr"
	"github.com/nikhilbhutani/docchat/internal/models"
	"github.com/nikhilbhutani/docchat/pkg/keylock"
)

// Indexer embeds and stores a document's chunks.
type Indexer interface {
	Upsert(ctx context.Context, filename string, chunks []models.Chunk) error
	Remove(ctx context.Context, filename string) error
	RemoveAll(ctx context.Context) error
	ChunkCountsByFile(ctx context.Context) (map[string]int, error)
}

// Metrics is the part of the metrics log the service writes to.
type Metrics interface {
	RecordError(ctx context.Context, ev models.ErrorEvent) models.ErrorEvent
	Reset()
}

type Service struct {
	ingestor *Ingestor
	indexer  Indexer
	metrics  Metrics
	allowed  map[string]bool

	locks *keylock.Locker
	// clear is held shared by uploads and exclusively by DeleteAll, so a
	// clear never interleaves with an upload's index write.
	clear sync.RWMutex

	mu   sync.RWMutex
	docs map[string]models.Document
}

// NewService accepts uploads whose extension is in allowedTypes, e.g. ".pdf".
func NewService(ing *Ingestor, idx Indexer, m Metrics, allowedTypes []string) *Service {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(t)] = true
	}
	return &Service{
		ingestor: ing,
		indexer:  idx,
		metrics:  m,
		allowed:  allowed,
		locks:    keylock.New(),
		docs:     make(map[string]models.Document),
	}
}

type UploadResult struct {
	Document   models.Document
	TotalFiles int
}

// Upload ingests and indexes data under filename, replacing any previous
// upload of the same name. On failure the previous version stays intact.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, apperr.Validation("filename required")
	}

	res, err := s.upload(ctx, filename, data)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.RecordError(context.WithoutCancel(ctx), models.ErrorEvent{
				Kind:    string(apperr.EventKind(err)),
				Message: err.Error(),
				Context: map[string]string{"filename": filename},
			})
		}
		return nil, err
	}
	return res, nil
}

func (s *Service) upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); len(s.allowed) > 0 && !s.allowed[ext] {
		return nil, apperr.Ingestion(nil, "only "+strings.Join(s.allowedList(), ", ")+" files are allowed")
	}

	s.clear.RLock()
	defer s.clear.RUnlock()

	unlock := s.locks.Lock(filename)
	defer unlock()

	ingested, err := s.ingestor.Ingest(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	if err := s.indexer.Upsert(ctx, filename, ingested.Chunks); err != nil {
		return nil, fmt.Errorf("index %s: %w", filename, err)
	}

	doc := models.Document{
		Filename:   filename,
		SizeBytes:  int64(len(data)),
		Pages:      ingested.Pages,
		ChunkCount: len(ingested.Chunks),
		CreatedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.docs[filename] = doc
	s.mu.Unlock()

	counts, err := s.indexer.ChunkCountsByFile(ctx)
	if err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}

	slog.Info("document indexed", "filename", filename, "pages", doc.Pages, "chunks", doc.ChunkCount)
	return &UploadResult{Document: doc, TotalFiles: len(counts)}, nil
}

// List returns metadata of documents uploaded through this process, by name.
func (s *Service) List() []models.Document {
	s.mu.RLock()
	docs := make([]models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs
}

// Counts maps each indexed filename to its chunk count.
func (s *Service) Counts(ctx context.Context) (map[string]int, error) {
	return s.indexer.ChunkCountsByFile(ctx)
}

func (s *Service) Delete(ctx context.Context, filename string) error {
	s.clear.RLock()
	defer s.clear.RUnlock()

	unlock := s.locks.Lock(filename)
	defer unlock()

	counts, err := s.indexer.ChunkCountsByFile(ctx)
	if err != nil {
		return fmt.Errorf("count files: %w", err)
	}
	if _, ok := counts[filename]; !ok {
		return apperr.NotFound("file not found: " + filename)
	}

	if err := s.indexer.Remove(ctx, filename); err != nil {
		return fmt.Errorf("remove %s: %w", filename, err)
	}

	s.mu.Lock()
	delete(s.docs, filename)
	s.mu.Unlock()

	slog.Info("document removed", "filename", filename)
	return nil
}

// DeleteAll removes every document and resets the metrics log.
func (s *Service) DeleteAll(ctx context.Context) error {
	s.clear.Lock()
	defer s.clear.Unlock()

	if err := s.indexer.RemoveAll(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	s.mu.Lock()
	s.docs = make(map[string]models.Document)
	s.mu.Unlock()

	s.metrics.Reset()
	slog.Info("knowledge base cleared")
	return nil
}

func (s *Service) allowedList() []string {
	out := make([]string, 0, len(s.allowed))
	for t := range s.allowed {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
