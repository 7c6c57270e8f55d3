package gesture

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/ayusman/signbridge/internal/detector"
)

// Sample is one labelled feature vector.
type Sample struct {
	Label    string                 `json:"label"`
	Features detector.FeatureVector `json:"features"`
}

// Tolerance bounds for trained templates. A letter's tolerance is the
// largest sample-to-centroid distance seen in training times ToleranceMargin,
// never below MinTolerance.
const (
	ToleranceMargin = 1.5
	MinTolerance    = 0.25
)

// Trainer processes labelled samples into letter templates.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Train averages the samples of every letter into one template and sets its
// tolerance from the spread of those samples. Templates are returned in
// alphabet order.
func (t *Trainer) Train(samples []Sample) ([]*Template, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	sums := make(map[string]*detector.FeatureVector)
	counts := make(map[string]int)

	for i, s := range samples {
		if !IsLabel(s.Label) {
			return nil, fmt.Errorf("sample %d has unknown label %q", i, s.Label)
		}
		sum, ok := sums[s.Label]
		if !ok {
			sum = &detector.FeatureVector{}
			sums[s.Label] = sum
		}
		for j := range s.Features {
			sum[j] += s.Features[j]
		}
		counts[s.Label]++
	}

	templates := make([]*Template, 0, len(sums))
	for _, label := range Labels {
		sum, ok := sums[label]
		if !ok {
			continue
		}
		n := float64(counts[label])
		tmpl := &Template{Label: label, Samples: counts[label]}
		for j := range sum {
			tmpl.Centroid[j] = sum[j] / n
		}
		templates = append(templates, tmpl)
	}

	spread := make(map[string]float64, len(templates))
	byLabel := make(map[string]*Template, len(templates))
	for _, tmpl := range templates {
		byLabel[tmpl.Label] = tmpl
	}
	for _, s := range samples {
		d := euclideanDistance(&s.Features, &byLabel[s.Label].Centroid)
		if d > spread[s.Label] {
			spread[s.Label] = d
		}
	}
	for _, tmpl := range templates {
		tmpl.Tolerance = math.Max(spread[tmpl.Label]*ToleranceMargin, MinTolerance)
	}

	return templates, nil
}

// Split divides samples into train and test sets per letter so every letter
// keeps roughly the same proportion in both. The shuffle is seeded for
// reproducible runs. testRatio is clamped to [0, 1].
func Split(samples []Sample, testRatio float64, seed int64) (train, test []Sample) {
	byLabel := make(map[string][]Sample)
	for _, s := range samples {
		byLabel[s.Label] = append(byLabel[s.Label], s)
	}

	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	rng := rand.New(rand.NewSource(seed))
	for _, l := range labels {
		group := byLabel[l]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(float64(len(group)) * testRatio)
		nTest = max(0, min(nTest, len(group)))
		if nTest == 0 && len(group) > 1 && testRatio > 0 {
			nTest = 1
		}
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	return train, test
}

// Report summarizes classifier accuracy on a labelled set.
type Report struct {
	Total    int
	Correct  int
	PerLabel map[string]LabelScore
}

// LabelScore is the accuracy for one letter.
type LabelScore struct {
	Total   int
	Correct int
}

// Accuracy returns the overall fraction of correct predictions.
func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Evaluate classifies every sample and tallies the results.
func Evaluate(c Classifier, samples []Sample) (Report, error) {
	report := Report{PerLabel: make(map[string]LabelScore)}
	for _, s := range samples {
		pred, err := c.Classify(s.Features)
		if err != nil {
			return report, err
		}
		score := report.PerLabel[s.Label]
		score.Total++
		report.Total++
		if pred.Label == s.Label {
			score.Correct++
			report.Correct++
		}
		report.PerLabel[s.Label] = score
	}
	return report, nil
}
