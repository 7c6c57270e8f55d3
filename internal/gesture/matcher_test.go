package gesture

import (
	"errors"
	"testing"

	"github.com/ayusman/signbridge/internal/detector"
)

func templateFor(label string, hand detector.HandLandmarks) *Template {
	return &Template{Label: label, Centroid: hand.Features(), Samples: 1}
}

func TestCentroidClassifier_Classify(t *testing.T) {
	c := NewCentroidClassifier()
	c.AddTemplate(templateFor("A", detector.LetterALandmarks()))
	c.AddTemplate(templateFor("B", detector.LetterBLandmarks()))
	c.AddTemplate(templateFor("L", detector.LetterLLandmarks()))

	tests := []struct {
		name string
		hand detector.HandLandmarks
		want string
	}{
		{"A", detector.LetterALandmarks(), "A"},
		{"B", detector.LetterBLandmarks(), "B"},
		{"L", detector.LetterLLandmarks(), "L"},
		{"moved and resized B", detector.Scale(detector.Translate(detector.LetterBLandmarks(), detector.Point3D{X: 0.2}), 1.7), "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := c.Classify(tt.hand.Features())
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if pred.Label != tt.want {
				t.Errorf("label = %s, want %s", pred.Label, tt.want)
			}
			if pred.Confidence < 0.9 {
				t.Errorf("expected high confidence for exact pose, got %f", pred.Confidence)
			}
		})
	}
}

func TestCentroidClassifier_NoTemplates(t *testing.T) {
	c := NewCentroidClassifier()

	_, err := c.Classify(featuresOf(detector.LetterALandmarks()))
	if !errors.Is(err, ErrNoTemplates) {
		t.Errorf("expected ErrNoTemplates, got %v", err)
	}
}

func TestCentroidClassifier_Tolerance(t *testing.T) {
	c := NewCentroidClassifier()
	tmpl := templateFor("A", detector.LetterALandmarks())
	tmpl.Tolerance = 0.01
	c.AddTemplate(tmpl)

	pred, err := c.Classify(featuresOf(detector.LetterBLandmarks()))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if pred.Label != "A" {
		t.Errorf("expected nearest label A, got %s", pred.Label)
	}
	if pred.Confidence != 0 {
		t.Errorf("expected zero confidence outside tolerance, got %f", pred.Confidence)
	}
}

func TestCentroidClassifier_Match(t *testing.T) {
	c := NewCentroidClassifier()
	c.SetTemplates([]*Template{
		templateFor("A", detector.LetterALandmarks()),
		templateFor("B", detector.LetterBLandmarks()),
	})

	matches := c.Match(featuresOf(detector.LetterALandmarks()))
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	if matches[0].Template.Label != "A" {
		t.Errorf("expected A first, got %s", matches[0].Template.Label)
	}
	if matches[0].Distance > 1e-9 {
		t.Errorf("expected zero distance for identical pose, got %f", matches[0].Distance)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("expected matches sorted by score descending")
	}
}

func TestCentroidClassifier_RemoveTemplate(t *testing.T) {
	c := NewCentroidClassifier()
	c.AddTemplate(templateFor("A", detector.LetterALandmarks()))
	c.AddTemplate(templateFor("B", detector.LetterBLandmarks()))

	c.RemoveTemplate("A")

	if c.Len() != 1 {
		t.Fatalf("expected 1 template, got %d", c.Len())
	}

	pred, _ := c.Classify(featuresOf(detector.LetterALandmarks()))
	if pred.Label != "B" {
		t.Errorf("expected only remaining label B, got %s", pred.Label)
	}
}

func TestPlaceholderClassifier(t *testing.T) {
	pred, err := NewPlaceholderClassifier().Classify(detector.FeatureVector{})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if pred.Label != "A" || pred.Confidence != 0.95 {
		t.Errorf("unexpected placeholder prediction %+v", pred)
	}
}

func TestLabels(t *testing.T) {
	if len(Labels) != 24 {
		t.Fatalf("expected 24 letters, got %d", len(Labels))
	}
	for _, motion := range []string{"J", "Z"} {
		if IsLabel(motion) {
			t.Errorf("%s requires motion and should not be a label", motion)
		}
	}
	if !IsLabel("Y") {
		t.Error("expected Y to be a label")
	}
}

func TestArgmax(t *testing.T) {
	probs := make([]float32, len(Labels))
	probs[3] = 0.7
	probs[5] = 0.2

	pred := argmax(probs)
	if pred.Label != "D" {
		t.Errorf("expected D, got %s", pred.Label)
	}
	if !floatEqual(pred.Confidence, float64(float32(0.7))) {
		t.Errorf("unexpected confidence %f", pred.Confidence)
	}

	if (argmax(nil) != Prediction{}) {
		t.Error("expected empty prediction for empty output")
	}
}

// featuresOf calls Features on an addressable copy of h.
func featuresOf(h detector.HandLandmarks) detector.FeatureVector { return h.Features() }
