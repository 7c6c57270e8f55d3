package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestCollectImages(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "A", "2.jpg"))
	touch(t, filepath.Join(root, "A", "1.PNG"))
	touch(t, filepath.Join(root, "A", "notes.txt"))
	touch(t, filepath.Join(root, "b", "nested", "1.jpeg"))
	touch(t, filepath.Join(root, "J", "1.jpg"))
	touch(t, filepath.Join(root, "nothing", "1.jpg"))
	touch(t, filepath.Join(root, "README.md"))

	images, skipped, err := collectImages(root, 0)
	if err != nil {
		t.Fatalf("collectImages() error = %v", err)
	}

	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d: %v", len(images), images)
	}
	if images[0].Label != "A" || filepath.Base(images[0].Path) != "1.PNG" {
		t.Errorf("expected sorted A images first, got %+v", images[0])
	}
	if images[2].Label != "B" {
		t.Errorf("expected lowercase directory mapped to B, got %s", images[2].Label)
	}

	if len(skipped) != 2 {
		t.Errorf("expected J and nothing to be skipped, got %v", skipped)
	}
}

func TestCollectImages_PerLabel(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg"} {
		touch(t, filepath.Join(root, "C", name))
	}

	images, _, err := collectImages(root, 2)
	if err != nil {
		t.Fatalf("collectImages() error = %v", err)
	}
	if len(images) != 2 {
		t.Errorf("expected 2 images with per-label cap, got %d", len(images))
	}
}

func TestCollectImages_MissingRoot(t *testing.T) {
	if _, _, err := collectImages(filepath.Join(t.TempDir(), "nope"), 0); err == nil {
		t.Error("expected error for missing dataset")
	}
}

func TestCheckTestRatio(t *testing.T) {
	for _, r := range []float64{0, 0.2, 0.99} {
		if err := checkTestRatio(r); err != nil {
			t.Errorf("checkTestRatio(%v) error = %v", r, err)
		}
	}
	for _, r := range []float64{-0.1, 1, 1.5, math.NaN()} {
		if err := checkTestRatio(r); err == nil {
			t.Errorf("checkTestRatio(%v) should fail", r)
		}
	}
}
