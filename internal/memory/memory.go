// Package memory stores per-session conversation turns.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nikhilbhutani/docchat/internal/models"
)

// Store keeps the ordered turn history of each session. Appends for one
// session are serialized; different sessions never contend.
type Store interface {
	// Append adds turns to the session atomically, in order.
	Append(ctx context.Context, sessionID string, turns ...models.Turn) error
	// History returns the most recent limit turns, oldest first. A limit of
	// zero or less returns everything. Unknown sessions yield an empty slice.
	History(ctx context.Context, sessionID string, limit int) ([]models.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

type session struct {
	mu         sync.Mutex
	turns      []models.Turn
	lastActive time.Time
	dead       bool // detached by Clear or Sweep
}

// BufferStore keeps sessions in process memory. maxTurns bounds each session
// as a sliding window; zero keeps every turn.
type BufferStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
	now      func() time.Time
}

func NewBufferStore(maxTurns int) *BufferStore {
	return &BufferStore{
		sessions: make(map[string]*session),
		maxTurns: maxTurns,
		now:      time.Now,
	}
}

func (s *BufferStore) get(sessionID string, create bool) *session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[sessionID]; !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	return sess
}

func (s *BufferStore) Append(_ context.Context, sessionID string, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	now := s.now()

	for {
		sess := s.get(sessionID, true)
		sess.mu.Lock()

		// A concurrent Clear or Sweep may have detached this session after we
		// looked it up; retry against the live one.
		if sess.dead {
			sess.mu.Unlock()
			continue
		}

		for _, t := range turns {
			if t.Timestamp.IsZero() {
				t.Timestamp = now
			}
			sess.turns = append(sess.turns, t)
		}
		if s.maxTurns > 0 && len(sess.turns) > s.maxTurns {
			sess.turns = append([]models.Turn(nil), sess.turns[len(sess.turns)-s.maxTurns:]...)
		}
		sess.lastActive = now
		sess.mu.Unlock()
		return nil
	}
}

func (s *BufferStore) History(_ context.Context, sessionID string, limit int) ([]models.Turn, error) {
	sess := s.get(sessionID, false)
	if sess == nil {
		return []models.Turn{}, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if limit <= 0 || limit > len(sess.turns) {
		limit = len(sess.turns)
	}
	out := make([]models.Turn, limit)
	copy(out, sess.turns[len(sess.turns)-limit:])
	return out, nil
}

func (s *BufferStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		// Wait out an in-flight append so it cannot land after the clear.
		sess.mu.Lock()
		sess.dead = true
		sess.turns = nil
		sess.mu.Unlock()
	}
	return nil
}

// Sessions reports how many sessions currently hold history.
func (s *BufferStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictionPolicy decides whether a session should be dropped.
type EvictionPolicy func(sessionID string, lastActive time.Time, turns int) bool

// IdleFor evicts sessions that have not been written to within d.
func IdleFor(d time.Duration, now func() time.Time) EvictionPolicy {
	return func(_ string, lastActive time.Time, _ int) bool {
		return now().Sub(lastActive) > d
	}
}

// Sweep removes every session the policy selects and returns how many were
// removed. Nothing calls it implicitly; sessions live until cleared.
func (s *BufferStore) Sweep(policy EvictionPolicy) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		evict := policy(id, sess.lastActive, len(sess.turns))
		if evict {
			sess.dead = true
		}
		sess.mu.Unlock()
		if evict {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
