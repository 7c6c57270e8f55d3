package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell hook in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

func TestExecutor_Execute(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	script := writeScript(t, dir, "ok.sh", `cat <<'JSON'
{"success":true,"data":{"message":"typed"}}
JSON
`)
	h := &Hook{Manifest: Manifest{Name: "ok"}, Path: dir, Executable: script}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, Event{Type: EventLetterStable, Letter: "A"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "typed" {
		t.Errorf("expected message 'typed', got %q", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	script := writeScript(t, dir, "echo.sh", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)
	h := &Hook{
		Manifest:   Manifest{Name: "echo", Config: json.RawMessage(`{"mode":"type"}`)},
		Path:       dir,
		Executable: script,
	}

	event := Event{Type: EventLetterStable, SessionID: "s1", Letter: "L", Confidence: 0.92}
	resp, err := NewExecutor(0).Execute(context.Background(), h, event)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var got Event
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to unmarshal echoed event: %v", err)
	}
	if got.Letter != "L" || got.SessionID != "s1" || got.Confidence != 0.92 {
		t.Errorf("unexpected echoed event %+v", got)
	}
	if string(got.Config) != `{"mode":"type"}` {
		t.Errorf("expected manifest config to be forwarded, got %s", got.Config)
	}
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	script := writeScript(t, dir, "slow.sh", "exec sleep 5\n")
	h := &Hook{Manifest: Manifest{Name: "slow"}, Path: dir, Executable: script}

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), h, Event{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timeout did not stop the hook")
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"non-zero exit", "echo broken >&2\nexit 3\n", "broken"},
		{"invalid json", "echo not-json\n", "failed to parse hook response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, dir, strings.ReplaceAll(tt.name, " ", "-")+".sh", tt.body)
			h := &Hook{Manifest: Manifest{Name: tt.name}, Path: dir, Executable: script}

			_, err := NewExecutor(time.Second).Execute(context.Background(), h, Event{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExecutor_Execute_MissingExecutable(t *testing.T) {
	h := &Hook{Manifest: Manifest{Name: "ghost"}, Path: t.TempDir(), Executable: "/nonexistent/hook"}

	if _, err := NewExecutor(time.Second).Execute(context.Background(), h, Event{}); err == nil {
		t.Error("expected error for missing executable")
	}
}

func TestDispatcher_Notify(t *testing.T) {
	skipOnWindows(t)
	root := t.TempDir()
	out := filepath.Join(root, "received.json")

	hookDir := mkHookDir(t, root, "recorder")
	writeScript(t, hookDir, "run.sh", "cat > '"+out+"'\necho '{\"success\":true}'\n")
	writeManifest(t, hookDir, Manifest{Name: "recorder", Executable: "run.sh", Events: []string{EventLetterStable}})

	mgr := NewManager(root)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	d := NewDispatcher(mgr, NewExecutor(5*time.Second))
	d.Notify(Event{Type: EventSessionCleared, SessionID: "s"})
	d.Notify(Event{Type: EventLetterStable, SessionID: "s", Letter: "B"})
	d.Wait()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("hook did not run: %v", err)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid event written: %v", err)
	}
	if got.Type != EventLetterStable || got.Letter != "B" {
		t.Errorf("unexpected event %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be filled in")
	}
}
