package hook

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrHookNotFound is returned when a requested hook cannot be found.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks below a directory.
type Manager struct {
	dir   string
	mu    sync.RWMutex
	hooks map[string]*Hook
}

// NewManager creates a Manager for the given hook directory.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:   dir,
		hooks: make(map[string]*Hook),
	}
}

// Discover rescans the hook directory. Every subdirectory holding a readable
// hook.json becomes a hook; unreadable manifests are skipped. A missing
// directory means no hooks.
func (m *Manager) Discover() error {
	hooks := make(map[string]*Hook)

	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		m.replace(hooks)
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(path, ManifestFile))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := jsonAPI.Unmarshal(data, &manifest); err != nil {
			logrus.WithError(err).WithField("hook_dir", path).Warn("hook: invalid manifest")
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			logrus.WithField("hook_dir", path).Warn("hook: manifest needs name and executable")
			continue
		}

		hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       path,
			Executable: filepath.Join(path, manifest.Executable),
		}
	}

	m.replace(hooks)
	logrus.WithField("count", len(hooks)).Info("hook: discovery complete")
	return nil
}

func (m *Manager) replace(hooks map[string]*Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = hooks
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns all hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Manifest.Name < hooks[j].Manifest.Name })
	return hooks
}

// For returns the hooks subscribed to an event type.
func (m *Manager) For(eventType string) []*Hook {
	var out []*Hook
	for _, h := range m.List() {
		if h.Wants(eventType) {
			out = append(out, h)
		}
	}
	return out
}

// Dir returns the hook directory path.
func (m *Manager) Dir() string {
	return m.dir
}
