// Package hook runs external executables when SignBridge recognizes a stable
// letter. Each hook lives in its own directory with a hook.json manifest.
package hook

import (
	"encoding/json"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Event types delivered to hooks.
const (
	EventLetterStable   = "letter_stable"
	EventSessionCleared = "session_cleared"
)

// ManifestFile is the manifest name looked up in every hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook and the events it wants.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Event is written to the hook's stdin as JSON.
type Event struct {
	Type       string          `json:"type"`
	SessionID  string          `json:"session_id"`
	Letter     string          `json:"letter,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether the hook subscribed to the event type. A manifest
// without events receives stable letters only.
func (h *Hook) Wants(eventType string) bool {
	if len(h.Manifest.Events) == 0 {
		return eventType == EventLetterStable
	}
	for _, e := range h.Manifest.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}
