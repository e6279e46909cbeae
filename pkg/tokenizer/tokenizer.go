package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// encoding loads cl100k_base once. A nil result means the heuristic is used.
func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}

// CountTokens returns the cl100k_base token count of text, falling back to a
// word-based estimate when the encoding is unavailable.
func CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// Estimate is the rough ~4/3 tokens per word heuristic.
func Estimate(text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	return max(len(words)*4/3, 1)
}

// CountMessages sums the token counts of several texts.
func CountMessages(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += CountTokens(t)
	}
	return total
}
