package gesture

import (
	"math"
	"sort"
	"sync"

	"github.com/ayusman/signbridge/internal/detector"
)

// Template is the averaged pose of one letter.
type Template struct {
	Label     string                 // Letter the template represents
	Centroid  detector.FeatureVector // Mean normalized feature vector
	Samples   int                    // Number of samples averaged into the centroid
	Tolerance float64                // Maximum distance for a match; 0 accepts any distance
}

// Match represents a matching result between input and a template.
type Match struct {
	Template *Template // The matched template
	Score    float64   // Match score (0-1, higher is better)
	Distance float64   // Euclidean distance between input and template
}

// CentroidClassifier picks the letter whose template centroid is nearest to
// the input feature vector.
type CentroidClassifier struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewCentroidClassifier creates a classifier with no templates.
func NewCentroidClassifier() *CentroidClassifier {
	return &CentroidClassifier{
		templates: make(map[string]*Template),
	}
}

// AddTemplate adds or replaces the template for a letter.
func (c *CentroidClassifier) AddTemplate(t *Template) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[t.Label] = t
}

// RemoveTemplate removes the template for a letter.
func (c *CentroidClassifier) RemoveTemplate(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.templates, label)
}

// SetTemplates replaces every template at once.
func (c *CentroidClassifier) SetTemplates(templates []*Template) {
	m := make(map[string]*Template, len(templates))
	for _, t := range templates {
		if t != nil {
			m[t.Label] = t
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = m
}

// Len returns the number of loaded templates.
func (c *CentroidClassifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Match scores the input against every template within tolerance.
// Returns matches sorted by score in descending order (best matches first).
func (c *CentroidClassifier) Match(features detector.FeatureVector) []Match {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches := make([]Match, 0, len(c.templates))
	for _, template := range c.templates {
		distance := euclideanDistance(&features, &template.Centroid)
		if template.Tolerance > 0 && distance > template.Tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: template,
			Score:    1.0 / (1.0 + distance),
			Distance: distance,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].Template.Label < matches[j].Template.Label
		}
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// Classify returns the best matching letter with its score as confidence.
func (c *CentroidClassifier) Classify(features detector.FeatureVector) (Prediction, error) {
	if c.Len() == 0 {
		return Prediction{}, ErrNoTemplates
	}

	matches := c.Match(features)
	if len(matches) == 0 {
		// Nothing within tolerance; report the nearest letter with zero confidence.
		return Prediction{Label: c.nearest(features), Confidence: 0}, nil
	}

	best := matches[0]
	return Prediction{Label: best.Template.Label, Confidence: best.Score}, nil
}

func (c *CentroidClassifier) nearest(features detector.FeatureVector) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bestLabel := ""
	bestDist := math.Inf(1)
	for _, t := range c.templates {
		d := euclideanDistance(&features, &t.Centroid)
		if d < bestDist || (d == bestDist && t.Label < bestLabel) {
			bestDist = d
			bestLabel = t.Label
		}
	}
	return bestLabel
}

// euclideanDistance is the L2 distance between two feature vectors.
func euclideanDistance(a, b *detector.FeatureVector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
