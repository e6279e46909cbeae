package chunker

import (
	"strings"
	"unicode/utf8"
)

type Chunker interface {
	Chunk(text string, opts ChunkOptions) []TextChunk
}

type ChunkOptions struct {
	ChunkSize    int    // target chunk size in characters
	ChunkOverlap int    // characters shared by consecutive chunks
	Strategy     string // "recursive", "fixed", "sentence"
}

type TextChunk struct {
	Content string
	Index   int
	Start   int // byte offset into the source text, -1 if unknown
	End     int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    1000,
		ChunkOverlap: 100,
		Strategy:     "recursive",
	}
}

type defaultChunker struct{}

func New() Chunker {
	return &defaultChunker{}
}

func (c *defaultChunker) Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = opts.ChunkSize / 2
	}

	var parts []string
	switch opts.Strategy {
	case "fixed":
		parts = splitFixed(text, opts)
	case "sentence":
		parts = merge(splitSentences(text), "", opts)
	default:
		parts = splitRecursive(text, []string{"\n\n", "\n", ". ", " ", ""}, opts)
	}

	return locate(text, parts)
}

// locate assigns indexes and source offsets. Parts are in document order, so
// each search resumes just after the previous chunk's start.
func locate(text string, parts []string) []TextChunk {
	chunks := make([]TextChunk, 0, len(parts))
	from := 0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		start := -1
		if from <= len(text) {
			if i := strings.Index(text[from:], p); i >= 0 {
				start = from + i
			}
		}
		if start < 0 {
			start = strings.Index(text, p)
		}
		end := -1
		if start >= 0 {
			end = start + len(p)
			from = start + 1
		}
		chunks = append(chunks, TextChunk{
			Content: p,
			Index:   len(chunks),
			Start:   start,
			End:     end,
		})
	}
	return chunks
}

func splitFixed(text string, opts ChunkOptions) []string {
	var parts []string
	runes := []rune(text)
	step := opts.ChunkSize - opts.ChunkOverlap

	for start := 0; start < len(runes); start += step {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

// splitRecursive splits on the coarsest separator present in text, recursing
// into pieces that are still too large, then merges small pieces back up to
// the target size with overlap.
func splitRecursive(text string, separators []string, opts ChunkOptions) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.Split(text, sep)
	}

	var result, pending []string
	for _, p := range pieces {
		if utf8.RuneCountInString(p) <= opts.ChunkSize {
			pending = append(pending, p)
			continue
		}
		if len(pending) > 0 {
			result = append(result, merge(pending, sep, opts)...)
			pending = nil
		}
		if len(rest) == 0 {
			result = append(result, splitFixed(p, opts)...)
			continue
		}
		result = append(result, splitRecursive(p, rest, opts)...)
	}
	if len(pending) > 0 {
		result = append(result, merge(pending, sep, opts)...)
	}
	return result
}

// merge joins pieces with sep into chunks of at most ChunkSize runes. When a
// chunk is emitted, trailing pieces totalling no more than ChunkOverlap runes
// are carried into the next one.
func merge(pieces []string, sep string, opts ChunkOptions) []string {
	sepLen := utf8.RuneCountInString(sep)

	var out []string
	var window []string
	total := 0

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		joined := 0
		if len(window) > 0 {
			joined = sepLen
		}

		if total+joined+n > opts.ChunkSize && len(window) > 0 {
			if s := strings.TrimSpace(strings.Join(window, sep)); s != "" {
				out = append(out, s)
			}
			for len(window) > 0 && (total > opts.ChunkOverlap || total+sepLen+n > opts.ChunkSize) {
				total -= utf8.RuneCountInString(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}

		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, p)
		total += n
	}

	if s := strings.TrimSpace(strings.Join(window, sep)); s != "" {
		out = append(out, s)
	}
	return out
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
