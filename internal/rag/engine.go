// Package rag answers questions from indexed documents: it retrieves similar
// chunks, asks the model for a grounded answer, scores it and records the
// exchange.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nikhilbhutani/docchat/internal/apperr"
	"github.com/nikhilbhutani/docchat/internal/llm"
	"github.com/nikhilbhutani/docchat/internal/memory"
	"github.com/nikhilbhutani/docchat/internal/models"
	"github.com/nikhilbhutani/docchat/internal/prompt"
	"github.com/nikhilbhutani/docchat/internal/vectorstore"
	"github.com/nikhilbhutani/docchat/pkg/tokenizer"
)

const (
	DefaultSessionID = "default"
	FallbackMessage  = "Sorry, I could not generate an answer right now. Please try again."
)

// ChatClient is the slice of llm.Gateway the engine needs.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Recorder is the metrics log.
type Recorder interface {
	RecordInteraction(ctx context.Context, in models.Interaction) models.Interaction
	RecordError(ctx context.Context, ev models.ErrorEvent) models.ErrorEvent
}

type EngineOptions struct {
	Provider    string
	Model       string
	Temperature float64
	// HistoryTurns caps how many past turns go into the prompt.
	HistoryTurns     int
	RefusalThreshold float64
	GenerateTimeout  time.Duration
	// RememberRefusals and RememberFailures decide whether refused and failed
	// exchanges are written to the conversation history.
	RememberRefusals bool
	RememberFailures bool
}

type Engine struct {
	retriever     *Retriever
	chat          ChatClient
	conversations memory.Store
	metrics       Recorder
	opts          EngineOptions
	now           func() time.Time
}

func NewEngine(r *Retriever, chat ChatClient, conversations memory.Store, metrics Recorder, opts EngineOptions) *Engine {
	return &Engine{
		retriever:     r,
		chat:          chat,
		conversations: conversations,
		metrics:       metrics,
		opts:          opts,
		now:           time.Now,
	}
}

type ChatRequest struct {
	Question       string
	SessionID      string
	FilterFilename string
	UseHistory     bool
}

type ChatResult struct {
	Answer       string
	Citations    []string
	Confidence   float64
	TokensInput  int
	TokensOutput int
	TokensTotal  int
	LatencyMs    int64
	Model        string
	Refused      bool
	Sources      []vectorstore.SearchResult
}

// Chat answers one question. Generation failures come back as a
// GenerationError carrying FallbackMessage; they are recorded as error events
// and leave the session history untouched. If ctx is cancelled before the
// exchange is recorded, nothing is recorded at all.
func (e *Engine) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperr.Validation("question required")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	start := e.now()

	results, err := e.retriever.Retrieve(ctx, question, req.FilterFilename)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = fmt.Errorf("retrieve: %w", err)
		}
		return nil, e.fail(ctx, sessionID, question, err)
	}

	var history []models.Turn
	if req.UseHistory && e.opts.HistoryTurns > 0 {
		history, err = e.conversations.History(ctx, sessionID, e.opts.HistoryTurns)
		if err != nil {
			slog.Warn("load conversation history failed", "session_id", sessionID, "error", err)
			history = nil
		}
	}

	res := &ChatResult{
		Confidence: Confidence(results),
		Model:      e.opts.Model,
		Sources:    results,
	}

	if len(results) == 0 {
		// Nothing to ground on: refuse without calling the model.
		res.Refused = true
		res.Answer = prompt.RefusalPhrase
	} else {
		msgs := composeMessages(results, history, question)

		resp, err := e.generate(ctx, msgs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			gerr := apperr.Generation(err, FallbackMessage)
			e.recordFailure(ctx, sessionID, question, gerr)
			return nil, gerr
		}

		res.Answer = strings.TrimSpace(resp.Content)
		if resp.Model != "" {
			res.Model = resp.Model
		}
		res.TokensInput, res.TokensOutput = resp.InputTokens, resp.OutputTokens
		if res.TokensInput == 0 && res.TokensOutput == 0 {
			for _, m := range msgs {
				res.TokensInput += tokenizer.CountTokens(m.Content)
			}
			res.TokensOutput = tokenizer.CountTokens(res.Answer)
		}
		res.TokensTotal = res.TokensInput + res.TokensOutput

		res.Refused = res.Confidence < e.opts.RefusalThreshold || isRefusal(res.Answer) || res.Answer == ""
		if res.Refused {
			res.Answer = prompt.RefusalPhrase
		} else {
			for _, s := range citedSources(res.Answer, results) {
				res.Citations = append(res.Citations, FormatCitation(s.Chunk))
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.record(context.WithoutCancel(ctx), sessionID, question, req.FilterFilename, res, start)
	return res, nil
}

// generate runs the model call under the configured deadline. No shared
// state is locked while it waits.
func (e *Engine) generate(ctx context.Context, msgs []llm.Message) (*llm.ChatResponse, error) {
	gctx := ctx
	if e.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, e.opts.GenerateTimeout)
		defer cancel()
	}

	resp, err := e.chat.Chat(gctx, llm.ChatRequest{
		Provider:    e.opts.Provider,
		Model:       e.opts.Model,
		Messages:    msgs,
		Temperature: e.opts.Temperature,
	})
	if err != nil {
		if errors.Is(gctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, err
	}
	return resp, nil
}

func (e *Engine) record(ctx context.Context, sessionID, question, filter string, res *ChatResult, start time.Time) {
	res.LatencyMs = e.now().Sub(start).Milliseconds()

	if !res.Refused || e.opts.RememberRefusals {
		e.remember(ctx, sessionID, question, res.Answer)
	}

	e.metrics.RecordInteraction(ctx, models.Interaction{
		SessionID:    sessionID,
		Question:     question,
		Answer:       res.Answer,
		Citations:    res.Citations,
		LatencyMs:    res.LatencyMs,
		TokensInput:  res.TokensInput,
		TokensOutput: res.TokensOutput,
		TokensTotal:  res.TokensTotal,
		Confidence:   res.Confidence,
		Model:        res.Model,
		WasRefused:   res.Refused,
		FilterUsed:   filter,
		CostUSD:      llm.CalculateCost(res.Model, res.TokensInput, res.TokensOutput),
	})
}

func (e *Engine) remember(ctx context.Context, sessionID, question, answer string) {
	now := e.now()
	err := e.conversations.Append(ctx, sessionID,
		models.Turn{Role: models.RoleUser, Content: question, Timestamp: now},
		models.Turn{Role: models.RoleAssistant, Content: answer, Timestamp: now},
	)
	if err != nil {
		slog.Error("append conversation turns failed", "session_id", sessionID, "error", err)
	}
}

// fail records err as an error event unless the caller has gone away.
func (e *Engine) fail(ctx context.Context, sessionID, question string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	e.recordError(context.WithoutCancel(ctx), sessionID, question, err)
	return err
}

func (e *Engine) recordFailure(ctx context.Context, sessionID, question string, err error) {
	rctx := context.WithoutCancel(ctx)
	e.recordError(rctx, sessionID, question, err)
	if e.opts.RememberFailures {
		e.remember(rctx, sessionID, question, FallbackMessage)
	}
}

func (e *Engine) recordError(ctx context.Context, sessionID, question string, err error) {
	slog.Error("chat failed", "session_id", sessionID, "kind", apperr.EventKind(err), "error", err)
	q := []rune(question)
	if len(q) > 100 {
		q = q[:100]
	}
	e.metrics.RecordError(ctx, models.ErrorEvent{
		Kind:    string(apperr.EventKind(err)),
		Message: err.Error(),
		Context: map[string]string{"session_id": sessionID, "question": string(q)},
	})
}
