package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/signbridge/internal/detector"
)

// newTestStore creates a new Store in a temporary directory for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "signbridge-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestSessionRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess, err := repo.Create()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if sess.ID == "" || sess.Token == "" {
		t.Fatal("session id and token should be set")
	}
	if sess.ID == sess.Token {
		t.Error("session id and token should differ")
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.Token != sess.Token {
		t.Errorf("expected token %q, got %q", sess.Token, got.Token)
	}
	if !got.IsActive {
		t.Error("new session should be active")
	}
	if got.TotalGestures != 0 {
		t.Errorf("expected 0 gestures, got %d", got.TotalGestures)
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Sessions().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_End(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess, err := repo.Create()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := repo.End(sess.ID); err != nil {
		t.Fatalf("failed to end session: %v", err)
	}

	got, _ := repo.GetByID(sess.ID)
	if got.IsActive {
		t.Error("ended session should be inactive")
	}

	if err := repo.End("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGestureLogRepository_Record(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, letter := range []string{"H", "E", "Y"} {
		err := s.GestureLogs().Record(&GestureLog{
			SessionID:  "default",
			Gesture:    letter,
			Confidence: 0.95,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("failed to record %s: %v", letter, err)
		}
	}

	// Unknown session ids get a row on first use
	sess, err := s.Sessions().GetByID("default")
	if err != nil {
		t.Fatalf("session should have been created: %v", err)
	}
	if sess.TotalGestures != 3 {
		t.Errorf("expected 3 gestures, got %d", sess.TotalGestures)
	}

	logs, err := s.GestureLogs().ListBySession("default", 2)
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Gesture != "Y" || logs[1].Gesture != "E" {
		t.Errorf("expected newest first, got %s, %s", logs[0].Gesture, logs[1].Gesture)
	}
	if len(logs[0].ID) != 26 {
		t.Errorf("expected ULID id, got %q", logs[0].ID)
	}
}

func TestSessionRepository_Stats(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Sessions().Create()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	start := sess.StartedAt
	for i := 0; i < 25; i++ {
		letter := string(rune('A' + i%24))
		err := s.GestureLogs().Record(&GestureLog{
			SessionID:  sess.ID,
			Gesture:    letter,
			Confidence: 0.9,
			CreatedAt:  start.Add(time.Duration(i+1) * time.Minute),
		})
		if err != nil {
			t.Fatalf("failed to record: %v", err)
		}
	}

	stats, err := s.Sessions().Stats(sess.ID)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}

	if stats.TotalGestures != 25 {
		t.Errorf("expected 25 gestures, got %d", stats.TotalGestures)
	}
	if len(stats.RecentLetters) != RecentLetterLimit {
		t.Errorf("expected %d recent letters, got %d", RecentLetterLimit, len(stats.RecentLetters))
	}
	if stats.RecentLetters[0] != "A" {
		// 25th letter wraps back to A
		t.Errorf("expected newest letter A, got %s", stats.RecentLetters[0])
	}
	if stats.DurationMinutes != 25 {
		t.Errorf("expected 25 minutes, got %d", stats.DurationMinutes)
	}
	if !stats.IsActive {
		t.Error("expected active session")
	}
}

func TestSessionRepository_Stats_Unknown(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Sessions().Stats("nobody")
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.TotalGestures != 0 || stats.IsActive || stats.StartedAt != nil {
		t.Errorf("expected empty stats, got %+v", stats)
	}
	if stats.RecentLetters == nil || len(stats.RecentLetters) != 0 {
		t.Error("expected empty, non-nil recent letters")
	}
}

func TestTranslationRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Translations()

	tr := &Translation{
		OriginalText:   "HELLO",
		TargetLanguage: "es",
		TranslatedText: "HOLA",
	}
	if err := repo.Create(tr); err != nil {
		t.Fatalf("failed to create translation: %v", err)
	}

	if tr.ID == "" || tr.CreatedAt.IsZero() {
		t.Error("id and created_at should be set")
	}
	if tr.SourceLanguage != DefaultSourceLanguage {
		t.Errorf("expected default source language, got %q", tr.SourceLanguage)
	}

	got, err := repo.GetByID(tr.ID)
	if err != nil {
		t.Fatalf("failed to get translation: %v", err)
	}
	if got.TranslatedText != "HOLA" || got.SessionID != "" {
		t.Errorf("unexpected translation %+v", got)
	}

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepository_ReplaceAll(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	a := detector.LetterALandmarks()
	b := detector.LetterBLandmarks()

	err := repo.ReplaceAll([]*LetterTemplate{
		{Label: "B", Centroid: b.Features(), Samples: 4},
		{Label: "A", Centroid: a.Features(), Samples: 3, Tolerance: 0.5},
	})
	if err != nil {
		t.Fatalf("failed to save templates: %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list templates: %v", err)
	}
	if len(list) != 2 || list[0].Label != "A" {
		t.Fatalf("expected A and B ordered by label, got %d", len(list))
	}
	if list[0].Centroid != a.Features() {
		t.Error("centroid should round trip")
	}
	if list[0].Tolerance != 0.5 || list[0].Samples != 3 {
		t.Errorf("unexpected template %+v", list[0])
	}

	// Replacing drops templates not in the new set
	if err := repo.ReplaceAll([]*LetterTemplate{{Label: "L", Samples: 1}}); err != nil {
		t.Fatalf("failed to replace templates: %v", err)
	}
	if _, err := repo.GetByLabel("A"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for A, got %v", err)
	}
	if _, err := repo.GetByLabel("L"); err != nil {
		t.Errorf("expected L template, got %v", err)
	}
}

func TestSampleRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Samples()

	samples := []*LetterSample{
		{Label: "B", Features: featuresOf(detector.LetterBLandmarks()), Source: "B/1.jpg"},
		{Label: "A", Features: featuresOf(detector.LetterALandmarks()), Source: "A/1.jpg"},
		{Label: "A", Features: featuresOf(detector.LetterALandmarks()), Source: "A/2.jpg"},
	}
	if err := repo.Create(samples); err != nil {
		t.Fatalf("failed to create samples: %v", err)
	}
	if samples[0].ID == 0 {
		t.Error("sample id should be set")
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list samples: %v", err)
	}
	if len(all) != 3 || all[0].Label != "A" {
		t.Fatalf("expected 3 samples ordered by label, got %d", len(all))
	}

	as, err := repo.ListByLabel("A")
	if err != nil {
		t.Fatalf("failed to list by label: %v", err)
	}
	if len(as) != 2 || as[1].Source != "A/2.jpg" {
		t.Errorf("unexpected samples for A: %d", len(as))
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("failed to delete samples: %v", err)
	}
	all, _ = repo.List()
	if len(all) != 0 {
		t.Errorf("expected no samples, got %d", len(all))
	}
}

// featuresOf calls Features on an addressable copy of h.
func featuresOf(h detector.HandLandmarks) detector.FeatureVector { return h.Features() }
