package rag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/docchat/internal/llm"
	"github.com/nikhilbhutani/docchat/internal/models"
	"github.com/nikhilbhutani/docchat/internal/prompt"
	"github.com/nikhilbhutani/docchat/internal/vectorstore"
)

const snippetLen = 150

var citationPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// CitationID identifies a chunk inside prompts and answers.
func CitationID(c models.Chunk) string {
	return c.Filename + "#" + strconv.Itoa(c.Index)
}

// composeMessages builds the grounded prompt: a system message carrying the
// retrieved context, the prior turns, then the question.
func composeMessages(results []vectorstore.SearchResult, history []models.Turn, question string) []llm.Message {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = prompt.ContextBlock.MustRender(map[string]string{
			"id":      CitationID(r.Chunk),
			"page":    strconv.Itoa(r.Chunk.Page + 1),
			"content": r.Chunk.Content,
		})
	}

	exampleID := "report.pdf#0"
	if len(results) > 0 {
		exampleID = CitationID(results[0].Chunk)
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{
		Role: "system",
		Content: prompt.GroundedSystem.MustRender(map[string]string{
			"example_id": exampleID,
			"refusal":    prompt.RefusalPhrase,
			"context":    strings.Join(blocks, "\n\n"),
		}),
	})
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{
		Role:    "user",
		Content: prompt.GroundedUser.MustRender(map[string]string{"question": question}),
	})
	return msgs
}

// Confidence scores how well the retrieved set supports an answer:
// 0.7 * top similarity + 0.3 * mean similarity, clamped to [0, 1]. Results
// must be ordered best first. An empty set scores 0.
func Confidence(results []vectorstore.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	mean := sum / float64(len(results))
	return clamp01(0.7*results[0].Score + 0.3*mean)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// isRefusal reports whether the model declined to answer from the context.
func isRefusal(answer string) bool {
	a := strings.ToLower(answer)
	return strings.Contains(a, "cannot find this information") || strings.Contains(a, "can't find this information")
}

// citedSources returns the retrieved chunks the answer refers to by id, in
// retrieval order. When the answer cites none of them, every retrieved chunk
// is returned.
func citedSources(answer string, results []vectorstore.SearchResult) []vectorstore.SearchResult {
	cited := make(map[string]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		for _, id := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ';' }) {
			cited[strings.TrimSpace(id)] = true
		}
	}

	var out []vectorstore.SearchResult
	for _, r := range results {
		if cited[CitationID(r.Chunk)] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return results
	}
	return out
}

// FormatCitation renders a chunk as a self-contained citation string.
func FormatCitation(c models.Chunk) string {
	snippet := strings.Join(strings.Fields(c.Content), " ")
	if r := []rune(snippet); len(r) > snippetLen {
		snippet = string(r[:snippetLen]) + "..."
	}
	return fmt.Sprintf("%s (page %d, chunk %d): %s", c.Filename, c.Page+1, c.Index, snippet)
}
