// Package stability turns a stream of noisy per-frame letter predictions into
// stable letters by majority voting over a sliding window per session.
package stability

import (
	"context"
	"hash/fnv"
	"sync"
)

// Config holds the stabilizer thresholds.
type Config struct {
	Window        int     // number of recent predictions considered
	Threshold     int     // votes the majority letter needs within a full window
	MinConfidence float64 // confidence the current prediction needs
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Window:        10,
		Threshold:     7,
		MinConfidence: 0.8,
	}
}

// Decision is the outcome of evaluating one prediction.
type Decision struct {
	Stable bool
	Label  string
}

const numStripes = 64

// Stabilizer evaluates predictions per session. Calls for the same session
// are serialized; different sessions usually run in parallel.
type Stabilizer struct {
	config Config
	store  HistoryStore
	locks  [numStripes]sync.Mutex
}

// New creates a Stabilizer over the given history store. A nil store uses an
// unbounded MemoryStore.
func New(config Config, store HistoryStore) *Stabilizer {
	if config.Window < 1 {
		config.Window = DefaultConfig().Window
	}
	if store == nil {
		store = NewMemoryStore(config.Window, MemoryOptions{})
	}
	return &Stabilizer{config: config, store: store}
}

// Config returns the active thresholds.
func (s *Stabilizer) Config() Config {
	return s.config
}

// Evaluate records label for the session and reports whether the window now
// agrees on a letter. A stable decision clears the window.
func (s *Stabilizer) Evaluate(ctx context.Context, sessionID, label string, confidence float64) (Decision, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	window, err := s.store.Append(ctx, sessionID, label)
	if err != nil {
		return Decision{Label: label}, err
	}

	if len(window) < s.config.Window {
		return Decision{Label: label}, nil
	}

	winner, count := majority(window)
	if count >= s.config.Threshold && confidence >= s.config.MinConfidence {
		if err := s.store.Clear(ctx, sessionID); err != nil {
			return Decision{Label: label}, err
		}
		return Decision{Stable: true, Label: winner}, nil
	}

	return Decision{Label: label}, nil
}

// Clear empties the session window.
func (s *Stabilizer) Clear(ctx context.Context, sessionID string) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()
	return s.store.Clear(ctx, sessionID)
}

func (s *Stabilizer) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%numStripes]
}

// majority returns the most frequent label in window. Ties go to the label
// appended most recently.
func majority(window []string) (string, int) {
	counts := make(map[string]int, len(window))
	last := make(map[string]int, len(window))
	for i, l := range window {
		counts[l]++
		last[l] = i
	}

	best := ""
	bestCount := 0
	for l, c := range counts {
		if c > bestCount || (c == bestCount && last[l] > last[best]) {
			best = l
			bestCount = c
		}
	}
	return best, bestCount
}
