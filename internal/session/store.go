package session

import (
	"context"
	"sync"
	"time"

	"ingressos-web/internal/checkout"
	"ingressos-web/internal/logger"

	"go.uber.org/zap"
)

const DefaultTTL = 30 * time.Minute

// Session is one browser's checkout: its form, loader and orchestrator.
type Session struct {
	ID           string
	Form         *checkout.Form
	Loader       *checkout.Loader
	Orchestrator *checkout.Orchestrator
	CreatedAt    time.Time

	lastSeen time.Time
}

// Store keeps checkout sessions in memory and drops idle ones.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Store) Add(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.lastSeen = now
	s.sessions[sess.ID] = sess
}

// Get returns the session and marks it as used. Expired sessions are
// removed on access.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes idle sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.L().Debug("expired checkout sessions removed", zap.Int("count", n))
			}
		}
	}
}

// A session with a submission in flight is never expired.
func (s *Store) expired(sess *Session, now time.Time) bool {
	if sess.Orchestrator != nil && sess.Orchestrator.InFlight() {
		return false
	}
	return now.Sub(sess.lastSeen) > s.ttl
}
