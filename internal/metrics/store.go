// Package metrics keeps the process-wide log of chat interactions and error
// events and derives dashboard snapshots from it.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/docchat/internal/models"
)

const maxErrorMessage = 500

// Sink receives every appended record, typically to archive it elsewhere.
// Sink failures are logged and never affect the in-process log.
type Sink interface {
	PublishInteraction(ctx context.Context, in models.Interaction) error
	PublishError(ctx context.Context, ev models.ErrorEvent) error
}

type Options struct {
	RecentInteractions int
	RecentErrors       int
	Sink               Sink
}

// Store is an append-only log. Records are never changed once appended and
// only Reset removes them.
type Store struct {
	mu           sync.RWMutex
	interactions []models.Interaction
	errors       []models.ErrorEvent

	recentInteractions int
	recentErrors       int
	sink               Sink
	now                func() time.Time
}

func NewStore(opts Options) *Store {
	if opts.RecentInteractions <= 0 {
		opts.RecentInteractions = 10
	}
	if opts.RecentErrors <= 0 {
		opts.RecentErrors = 5
	}
	return &Store{
		recentInteractions: opts.RecentInteractions,
		recentErrors:       opts.RecentErrors,
		sink:               opts.Sink,
		now:                time.Now,
	}
}

// RecordInteraction appends in, assigning an ID and timestamp when missing,
// and returns the stored record.
func (s *Store) RecordInteraction(ctx context.Context, in models.Interaction) models.Interaction {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}
	in.Timestamp = in.Timestamp.UTC()
	if in.TokensTotal == 0 {
		in.TokensTotal = in.TokensInput + in.TokensOutput
	}
	in.Citations = append([]string(nil), in.Citations...)

	s.mu.Lock()
	s.interactions = append(s.interactions, in)
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.PublishInteraction(ctx, in); err != nil {
			slog.Warn("publish interaction failed", "id", in.ID, "error", err)
		}
	}
	return in
}

// RecordError appends ev. Messages are truncated to 500 characters.
func (s *Store) RecordError(ctx context.Context, ev models.ErrorEvent) models.ErrorEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	ev.Timestamp = ev.Timestamp.UTC()
	ev.Message = truncate(ev.Message, maxErrorMessage)
	if len(ev.Context) > 0 {
		c := make(map[string]string, len(ev.Context))
		for k, v := range ev.Context {
			c[k] = v
		}
		ev.Context = c
	}

	s.mu.Lock()
	s.errors = append(s.errors, ev)
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.PublishError(ctx, ev); err != nil {
			slog.Warn("publish error event failed", "id", ev.ID, "error", err)
		}
	}
	return ev
}

// Reset drops every record. Used when the knowledge base is cleared and by
// tests.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = nil
	s.errors = nil
}

// view returns the current prefix of both logs. Appends only ever add past
// the captured lengths, so the slices can be read without the lock.
func (s *Store) view() ([]models.Interaction, []models.ErrorEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interactions[:len(s.interactions):len(s.interactions)],
		s.errors[:len(s.errors):len(s.errors)]
}

// History returns up to limit interactions, newest first, optionally only
// those of one session.
func (s *Store) History(sessionID string, limit int) []models.Interaction {
	interactions, _ := s.view()
	if limit <= 0 {
		limit = 50
	}

	out := make([]models.Interaction, 0, min(limit, len(interactions)))
	for i := len(interactions) - 1; i >= 0 && len(out) < limit; i-- {
		if sessionID != "" && interactions[i].SessionID != sessionID {
			continue
		}
		out = append(out, interactions[i])
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
