package stability

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HistoryStore keeps the recent label window of every session.
type HistoryStore interface {
	// Append adds a label to the session window, evicting the oldest entry
	// past capacity, and returns the window oldest first.
	Append(ctx context.Context, sessionID, label string) ([]string, error)
	// Clear empties the session window. Unknown sessions are a no-op.
	Clear(ctx context.Context, sessionID string) error
}

// MemoryOptions bounds an in-process store. Zero values disable the bound.
type MemoryOptions struct {
	TTL         time.Duration // idle time after which a session is dropped
	MaxSessions int           // least recently seen session is evicted past this
}

type memoryEntry struct {
	window   *ring
	lastSeen time.Time
}

// MemoryStore is an in-process HistoryStore.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	opts     MemoryOptions
	sessions map[string]*memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates a store whose windows hold capacity labels.
func NewMemoryStore(capacity int, opts MemoryOptions) *MemoryStore {
	return &MemoryStore{
		capacity: capacity,
		opts:     opts,
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// Append implements HistoryStore.
func (s *MemoryStore) Append(_ context.Context, sessionID, label string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.sessions[sessionID]
	if !ok {
		if s.opts.MaxSessions > 0 && len(s.sessions) >= s.opts.MaxSessions {
			s.evictOldestLocked()
		}
		e = &memoryEntry{window: newRing(s.capacity)}
		s.sessions[sessionID] = e
	}
	e.lastSeen = now
	e.window.Push(label)
	return e.window.Labels(), nil
}

// Clear implements HistoryStore.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		e.window.Reset()
	}
	return nil
}

// Len returns the number of tracked sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Window returns a copy of the session window oldest first.
func (s *MemoryStore) Window(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		return e.window.Labels()
	}
	return nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *MemoryStore) Sweep() int {
	if s.opts.TTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.opts.TTL)
	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if s.opts.TTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logrus.WithField("removed", n).Debug("stability: swept idle sessions")
			}
		}
	}
}

func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
		found    bool
	)
	for id, e := range s.sessions {
		if !found || e.lastSeen.Before(oldest) {
			oldestID = id
			oldest = e.lastSeen
			found = true
		}
	}
	if found {
		delete(s.sessions, oldestID)
		logrus.WithField("session_id", oldestID).Debug("stability: evicted least recently seen session")
	}
}
