package document

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/nikhilbhutani/docchat/internal/apperr"
	"github.com/nikhilbhutani/docchat/internal/models"
	"github.com/nikhilbhutani/docchat/pkg/chunker"
	"github.com/nikhilbhutani/docchat/pkg/textextract"
	"github.com/nikhilbhutani/docchat/pkg/tokenizer"
)

const noTextMessage = "Could not extract text from the document. The file may be empty or corrupted."

// Ingestor turns raw document bytes into ordered chunks. It holds no state,
// so a failed ingest never touches anything.
type Ingestor struct {
	chunker chunker.Chunker
	opts    chunker.ChunkOptions
}

func NewIngestor(opts chunker.ChunkOptions) *Ingestor {
	if opts.ChunkSize <= 0 {
		opts = chunker.DefaultOptions()
	}
	return &Ingestor{chunker: chunker.New(), opts: opts}
}

// Ingested is the outcome of one successful ingest.
type Ingested struct {
	Pages  int
	Chunks []models.Chunk
}

// Ingest extracts text page by page and chunks each page. Chunk indexes run
// across the whole document starting at 0.
func (i *Ingestor) Ingest(ctx context.Context, filename string, data []byte) (*Ingested, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	text, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), ext)
	if err != nil {
		if errors.Is(err, textextract.ErrUnsupportedType) {
			return nil, apperr.Ingestion(err, "unsupported file type "+ext+" (supported: "+strings.Join(textextract.SupportedTypes(), ", ")+")")
		}
		return nil, apperr.Ingestion(err, "could not read "+filename)
	}

	var chunks []models.Chunk
	for _, page := range text.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, tc := range i.chunker.Chunk(page.Text, i.opts) {
			chunks = append(chunks, models.Chunk{
				Filename:   filename,
				Index:      len(chunks),
				Content:    tc.Content,
				Page:       page.Number,
				Offset:     tc.Start,
				TokenCount: tokenizer.CountTokens(tc.Content),
			})
		}
	}

	if len(chunks) == 0 {
		return nil, apperr.Ingestion(nil, noTextMessage)
	}
	return &Ingested{Pages: text.NumPages, Chunks: chunks}, nil
}
