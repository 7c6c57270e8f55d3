// Command signbridge-train extracts hand features from a labelled image
// dataset, trains per-letter centroid templates and stores them for the
// centroid classifier.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/gesture"
	"github.com/ayusman/signbridge/internal/logging"
	"github.com/ayusman/signbridge/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "signbridge-train: %v\n", err)
		os.Exit(1)
	}

	dataset := flag.String("dataset", "dataset", "directory with one sub-directory of images per letter")
	dbPath := flag.String("db", cfg.Store.Path, "SQLite database to store samples and templates in")
	perLabel := flag.Int("per-label", 0, "maximum images per letter, 0 for all")
	testRatio := flag.Float64("test-ratio", 0.2, "fraction of each letter held out for evaluation")
	seed := flag.Int64("seed", 42, "random seed for the train/test split")
	mirror := flag.Bool("mirror", false, "flip images horizontally before detection")
	flag.Parse()

	log, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, JSON: cfg.Log.JSON})
	if err != nil {
		fmt.Fprintf(os.Stderr, "signbridge-train: %v\n", err)
		os.Exit(1)
	}

	if err := checkTestRatio(*testRatio); err != nil {
		fmt.Fprintf(os.Stderr, "signbridge-train: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.WithError(err).Fatal("Failed to create data directory")
	}
	st, err := store.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}
	defer st.Close()

	detCfg := detector.DefaultConfig()
	detCfg.StaticImageMode = true
	detCfg.MinConfidence = 0.3
	detCfg.ScriptPath = cfg.Detector.ScriptPath
	detCfg.PythonPath = cfg.Detector.PythonPath
	det, err := detector.NewMediaPipeDetector(detCfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize hand detector")
	}
	defer det.Close()

	images, skipped, err := collectImages(*dataset, *perLabel)
	if err != nil {
		log.WithError(err).Fatal("Failed to read dataset")
	}
	for _, dir := range skipped {
		log.WithField("dir", dir).Warn("Skipping directory that is not a static letter")
	}
	if len(images) == 0 {
		log.WithField("dataset", *dataset).Fatal("No images found")
	}

	samples := extract(det, images, *mirror, log)
	if len(samples) == 0 {
		log.Fatal("No hands detected in any image")
	}

	records := make([]*store.LetterSample, len(samples))
	for i, s := range samples {
		records[i] = &store.LetterSample{Label: s.Label, Features: s.Features, Source: *dataset}
	}
	if err := st.Samples().DeleteAll(); err != nil {
		log.WithError(err).Fatal("Failed to clear old samples")
	}
	if err := st.Samples().Create(records); err != nil {
		log.WithError(err).Fatal("Failed to store samples")
	}

	train, test := gesture.Split(samples, *testRatio, *seed)
	templates, err := gesture.NewTrainer().Train(train)
	if err != nil {
		log.WithError(err).Fatal("Training failed")
	}

	classifier := gesture.NewCentroidClassifier()
	classifier.SetTemplates(templates)
	report, err := gesture.Evaluate(classifier, test)
	if err != nil {
		log.WithError(err).Fatal("Evaluation failed")
	}
	printReport(report, len(train))

	stored := make([]*store.LetterTemplate, len(templates))
	for i, t := range templates {
		stored[i] = &store.LetterTemplate{
			Label:     t.Label,
			Centroid:  t.Centroid,
			Samples:   t.Samples,
			Tolerance: t.Tolerance,
		}
	}
	if err := st.Templates().ReplaceAll(stored); err != nil {
		log.WithError(err).Fatal("Failed to save templates")
	}

	log.WithFields(logrus.Fields{
		"templates": len(stored),
		"db":        *dbPath,
	}).Info("Templates saved, run signbridge with SIGNBRIDGE_CLASSIFIER=centroid")
}

// extract runs the detector on every image and keeps the first hand found.
func extract(det detector.Detector, images []labelledImage, mirror bool, log *logrus.Logger) []gesture.Sample {
	samples := make([]gesture.Sample, 0, len(images))
	var noHand, failed int

	for i, img := range images {
		entry := log.WithFields(logrus.Fields{"label": img.Label, "path": img.Path})

		data, err := os.ReadFile(img.Path)
		if err != nil {
			entry.WithError(err).Warn("Failed to read image")
			failed++
			continue
		}
		frame, err := capture.Decode(data)
		if err != nil {
			entry.WithError(err).Warn("Failed to decode image")
			failed++
			continue
		}
		if mirror {
			capture.Mirror(frame)
		}

		hands, err := det.Detect(frame)
		frame.Close()
		if err != nil {
			entry.WithError(err).Warn("Detection failed")
			failed++
			continue
		}
		if len(hands) == 0 {
			noHand++
			continue
		}

		samples = append(samples, gesture.Sample{Label: img.Label, Features: hands[0].Features()})

		if (i+1)%100 == 0 {
			log.WithField("processed", i+1).Info("Extracting features")
		}
	}

	log.WithFields(logrus.Fields{
		"images":  len(images),
		"samples": len(samples),
		"no_hand": noHand,
		"failed":  failed,
	}).Info("Feature extraction finished")
	return samples
}

func printReport(report gesture.Report, trained int) {
	fmt.Printf("Trained on %d samples, evaluated on %d\n", trained, report.Total)
	fmt.Printf("Overall accuracy: %.2f%%\n\n", report.Accuracy()*100)

	labels := make([]string, 0, len(report.PerLabel))
	for l := range report.PerLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	for _, l := range labels {
		s := report.PerLabel[l]
		fmt.Printf("  %s  %3d/%-3d  %6.2f%%\n", l, s.Correct, s.Total, 100*float64(s.Correct)/float64(s.Total))
	}
}
