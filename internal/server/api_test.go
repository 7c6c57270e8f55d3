package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/store"
)

func newStoreServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	a := app.New(app.Config{Detector: handDetector(), Store: st})
	t.Cleanup(func() { a.Close() })
	return New(Config{App: a}), st
}

func TestAPI_SessionWorkflow(t *testing.T) {
	s, _ := newStoreServer(t)

	// Step 1: create a session
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("create session: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var created createSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if !created.Success || created.SessionID == "" || created.SessionToken == "" {
		t.Fatalf("unexpected create response %+v", created)
	}

	// Step 2: spell two stable letters under that session
	img := testJPEG(t)
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, multipartRequest(t, "/recognize_gesture/?session_id="+created.SessionID, img, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("frame %d: expected 200, got %d", i, rec.Code)
		}
	}

	// Step 3: read stats
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID+"/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}

	var stats store.SessionStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.SessionID != created.SessionID {
		t.Errorf("unexpected session id %s", stats.SessionID)
	}
	if stats.TotalGestures != 2 {
		t.Errorf("expected 2 gestures, got %d", stats.TotalGestures)
	}
	if len(stats.RecentLetters) != 2 || stats.RecentLetters[0] != "A" {
		t.Errorf("unexpected recent letters %v", stats.RecentLetters)
	}
	if !stats.IsActive || stats.StartedAt == nil {
		t.Errorf("expected active session with start time, got %+v", stats)
	}
}

func TestAPI_SessionStatsUnknown(t *testing.T) {
	s, _ := newStoreServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nobody/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&body)
	if body["total_gestures"] != 0.0 || body["is_active"] != false || body["started_at"] != nil {
		t.Errorf("expected empty stats, got %v", body)
	}
}

func TestAPI_Translations(t *testing.T) {
	s, st := newStoreServer(t)

	t.Run("logs a translation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/translations",
			`{"original_text":"HELLO","target_language":"es","translated_text":"HOLA"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp createTranslationResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if !resp.Success || resp.ID == "" {
			t.Fatalf("unexpected response %+v", resp)
		}
		if time.Since(resp.CreatedAt) > time.Minute {
			t.Errorf("unexpected created_at %v", resp.CreatedAt)
		}

		saved, err := st.Translations().GetByID(resp.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if saved.SourceLanguage != store.DefaultSourceLanguage || saved.TranslatedText != "HOLA" {
			t.Errorf("unexpected saved translation %+v", saved)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing translated text", `{"original_text":"HI","target_language":"fr"}`},
		{"empty body", `{}`},
		{"invalid json", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/translations", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAPI_RoutesNeedStore(t *testing.T) {
	s := newTestServer(t, handDetector())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a store, got %d", rec.Code)
	}
}
