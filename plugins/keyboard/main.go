// Command keyboard is a SignBridge hook that types every stable letter into
// the focused window. It uses AppleScript on macOS and xdotool elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Event is the subset of the hook event this hook reads.
type Event struct {
	Type   string          `json:"type"`
	Letter string          `json:"letter"`
	Config json.RawMessage `json:"config"`
}

// Response is written back to SignBridge.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config comes from the manifest.
type Config struct {
	Lowercase bool `json:"lowercase"`
	DryRun    bool `json:"dry_run"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode event: %v", err)})
		return
	}

	if ev.Type != "letter_stable" {
		writeResponse(Response{Success: true})
		return
	}

	var cfg Config
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &cfg); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("invalid config: %v", err)})
			return
		}
	}

	key, err := keyFor(ev.Letter, cfg.Lowercase)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	name, args := typeCommand(runtime.GOOS, key)
	if cfg.DryRun {
		data, _ := json.Marshal(map[string]any{"command": append([]string{name}, args...)})
		writeResponse(Response{Success: true, Data: data})
		return
	}

	if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("%s failed: %v: %s", name, err, strings.TrimSpace(string(out)))})
		return
	}
	writeResponse(Response{Success: true})
}

// keyFor validates that letter is a single ASCII letter.
func keyFor(letter string, lower bool) (string, error) {
	if len(letter) != 1 || !((letter[0] >= 'A' && letter[0] <= 'Z') || (letter[0] >= 'a' && letter[0] <= 'z')) {
		return "", fmt.Errorf("not a letter: %q", letter)
	}
	if lower {
		return strings.ToLower(letter), nil
	}
	return strings.ToUpper(letter), nil
}

// typeCommand returns the program and arguments that type key.
func typeCommand(goos, key string) (string, []string) {
	if goos == "darwin" {
		return "osascript", []string{"-e", fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)}
	}
	return "xdotool", []string{"type", "--", key}
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
