package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ayusman/signbridge/internal/gesture"
)

// labelledImage is one dataset file and the letter its directory names.
type labelledImage struct {
	Label string
	Path  string
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// collectImages walks root/<LETTER>/ and returns every image below a known
// letter directory, sorted by path. Other directories are skipped.
func collectImages(root string, perLabel int) ([]labelledImage, []string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, err
	}

	var images []labelledImage
	var skipped []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		label := strings.ToUpper(e.Name())
		if !gesture.IsLabel(label) {
			skipped = append(skipped, e.Name())
			continue
		}

		var files []string
		err := filepath.WalkDir(filepath.Join(root, e.Name()), func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && imageExts[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}

		sort.Strings(files)
		if perLabel > 0 && len(files) > perLabel {
			files = files[:perLabel]
		}
		for _, f := range files {
			images = append(images, labelledImage{Label: label, Path: f})
		}
	}
	return images, skipped, nil
}

// checkTestRatio accepts held-out fractions in [0, 1).
func checkTestRatio(r float64) error {
	if !(r >= 0 && r < 1) {
		return fmt.Errorf("-test-ratio must be in [0, 1), got %v", r)
	}
	return nil
}
