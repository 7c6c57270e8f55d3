// Package gesture classifies normalized hand poses into fingerspelled letters.
package gesture

import (
	"errors"

	"github.com/ayusman/signbridge/internal/detector"
)

// Labels is the static fingerspelling alphabet. J and Z are traced in the air
// and cannot be told apart from a single frame, so they are not part of it.
var Labels = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I",
	"K", "L", "M", "N", "O", "P", "Q", "R", "S",
	"T", "U", "V", "W", "X", "Y",
}

var labelIndex = func() map[string]int {
	m := make(map[string]int, len(Labels))
	for i, l := range Labels {
		m[l] = i
	}
	return m
}()

// IsLabel reports whether s is one of the recognized letters.
func IsLabel(s string) bool {
	_, ok := labelIndex[s]
	return ok
}

// ErrNoTemplates is returned by a classifier that has nothing to compare against.
var ErrNoTemplates = errors.New("no letter templates loaded")

// Prediction is a classifier's answer for one frame.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps a feature vector to a letter.
type Classifier interface {
	Classify(features detector.FeatureVector) (Prediction, error)
}

// PlaceholderClassifier answers the same letter for every input.
// It stands in until a trained model is configured.
type PlaceholderClassifier struct {
	Label      string
	Confidence float64
}

// NewPlaceholderClassifier returns the default stand-in classifier ("A", 0.95).
func NewPlaceholderClassifier() *PlaceholderClassifier {
	return &PlaceholderClassifier{Label: "A", Confidence: 0.95}
}

// Classify returns the configured constant prediction.
func (c *PlaceholderClassifier) Classify(detector.FeatureVector) (Prediction, error) {
	return Prediction{Label: c.Label, Confidence: c.Confidence}, nil
}
