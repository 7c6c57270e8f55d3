// Package app ties hand detection, letter classification and per-session
// stabilization into the recognition pipeline behind the HTTP API and the
// camera loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/gesture"
	"github.com/ayusman/signbridge/internal/hook"
	"github.com/ayusman/signbridge/internal/logging"
	"github.com/ayusman/signbridge/internal/stability"
	"github.com/ayusman/signbridge/internal/store"
)

// Service identity reported by the health endpoint.
const (
	ServiceName = "ASL Alphabet Recognition API"
	Version     = "1.0.0"
)

// DefaultSessionID is used when a caller names no session.
const DefaultSessionID = "default"

// DefaultDetectTimeout bounds a single hand detection call.
const DefaultDetectTimeout = 10 * time.Second

// No-hand result values.
const (
	NoHandGesture = "No hand detected"
	NoHandMessage = "Move your hand closer and keep it inside the frame"
)

var (
	// ErrInvalidImage is returned when image bytes cannot be decoded.
	ErrInvalidImage = errors.New("invalid image format")
	// ErrMissingInput is returned when no frame data was supplied.
	ErrMissingInput = errors.New("no frame data provided")
	// ErrDetectTimeout is returned when hand detection exceeds its deadline.
	ErrDetectTimeout = errors.New("hand detection timed out")
)

// Result is the recognition outcome for one frame.
type Result struct {
	Gesture     string  `json:"gesture"`
	Confidence  float64 `json:"confidence"`
	Stable      bool    `json:"stable"`
	Description string  `json:"description,omitempty"`
	Message     string  `json:"message,omitempty"`
}

// Describe returns the human readable description of a letter.
func Describe(label string) string {
	return fmt.Sprintf("ASL fingerspelling letter %s", label)
}

// Config holds the App's collaborators. Store and Hooks are optional.
type Config struct {
	Detector      detector.Detector
	Classifier    gesture.Classifier
	Stabilizer    *stability.Stabilizer
	Store         *store.Store
	Hooks         *hook.Dispatcher
	DetectTimeout time.Duration
	// NoMirror disables the horizontal flip applied to every frame.
	NoMirror bool
}

// App runs the recognition pipeline.
type App struct {
	detector      detector.Detector
	classifier    gesture.Classifier
	stabilizer    *stability.Stabilizer
	store         *store.Store
	hooks         *hook.Dispatcher
	detectTimeout time.Duration
	mirror        bool
}

// New creates an App. A nil classifier uses the placeholder and a nil
// stabilizer uses the default thresholds with in-memory history.
func New(config Config) *App {
	a := &App{
		detector:      config.Detector,
		classifier:    config.Classifier,
		stabilizer:    config.Stabilizer,
		store:         config.Store,
		hooks:         config.Hooks,
		detectTimeout: config.DetectTimeout,
		mirror:        !config.NoMirror,
	}
	if a.classifier == nil {
		a.classifier = gesture.NewPlaceholderClassifier()
	}
	if a.stabilizer == nil {
		a.stabilizer = stability.New(stability.DefaultConfig(), nil)
	}
	if a.detectTimeout <= 0 {
		a.detectTimeout = DefaultDetectTimeout
	}
	return a
}

// Stabilizer returns the session stabilizer.
func (a *App) Stabilizer() *stability.Stabilizer {
	return a.stabilizer
}

// Store returns the configured store, which may be nil.
func (a *App) Store() *store.Store {
	return a.store
}

// Recognize decodes an uploaded image and runs it through the pipeline.
func (a *App) Recognize(ctx context.Context, sessionID string, image []byte) (*Result, error) {
	frame, err := capture.Decode(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return a.ProcessFrame(ctx, sessionID, frame)
}

// RecognizeBase64 decodes a base64 frame, optionally carrying a data URL
// header, and runs it through the pipeline.
func (a *App) RecognizeBase64(ctx context.Context, sessionID, frame string) (*Result, error) {
	if frame == "" {
		return nil, ErrMissingInput
	}

	data, err := capture.DecodeBase64(frame)
	if err != nil {
		if errors.Is(err, capture.ErrEmptyImage) {
			return nil, ErrMissingInput
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return a.Recognize(ctx, sessionID, data)
}

// ProcessFrame runs detection, classification and stabilization on a decoded
// frame. It takes ownership of frame and closes it.
func (a *App) ProcessFrame(ctx context.Context, sessionID string, frame *gocv.Mat) (*Result, error) {
	sessionID = SessionOrDefault(sessionID)
	log := logging.FromContext(ctx).WithField("session_id", sessionID)

	if a.mirror {
		capture.Mirror(frame)
	}

	hands, err := a.detect(ctx, frame)
	if err != nil {
		return nil, err
	}

	if len(hands) == 0 {
		if err := a.stabilizer.Clear(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to clear session: %w", err)
		}
		log.Debug("app: no hand detected")
		return &Result{
			Gesture:    NoHandGesture,
			Confidence: 0,
			Stable:     false,
			Message:    NoHandMessage,
		}, nil
	}

	features := hands[0].Features()
	pred, err := a.classifier.Classify(features)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	decision, err := a.stabilizer.Evaluate(ctx, sessionID, pred.Label, pred.Confidence)
	if err != nil {
		return nil, fmt.Errorf("stabilization failed: %w", err)
	}

	log.WithFields(logrus.Fields{
		"label":      decision.Label,
		"confidence": pred.Confidence,
		"stable":     decision.Stable,
	}).Debug("app: frame classified")

	if decision.Stable {
		a.onStable(sessionID, decision.Label, pred.Confidence, log)
	}

	return &Result{
		Gesture:     decision.Label,
		Confidence:  pred.Confidence,
		Stable:      decision.Stable,
		Description: Describe(decision.Label),
	}, nil
}

// ClearSession empties the session's stability window.
func (a *App) ClearSession(ctx context.Context, sessionID string) error {
	sessionID = SessionOrDefault(sessionID)
	if err := a.stabilizer.Clear(ctx, sessionID); err != nil {
		return err
	}
	if a.hooks != nil {
		a.hooks.Notify(hook.Event{Type: hook.EventSessionCleared, SessionID: sessionID})
	}
	logging.FromContext(ctx).WithField("session_id", sessionID).Info("app: session cleared")
	return nil
}

// SessionOrDefault maps an empty session id to DefaultSessionID.
func SessionOrDefault(sessionID string) string {
	if sessionID == "" {
		return DefaultSessionID
	}
	return sessionID
}

// Close releases the detector.
func (a *App) Close() error {
	if a.hooks != nil {
		a.hooks.Wait()
	}
	if a.detector != nil {
		return a.detector.Close()
	}
	return nil
}

type detectResult struct {
	hands []detector.HandLandmarks
	err   error
}

// detect runs the detector under the detect timeout. The frame is closed once
// the detector is done with it, even if the caller already gave up.
func (a *App) detect(ctx context.Context, frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	if a.detector == nil {
		frame.Close()
		return nil, errors.New("no hand detector configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.detectTimeout)
	defer cancel()

	done := make(chan detectResult, 1)
	go func() {
		defer frame.Close()
		hands, err := a.detector.Detect(frame)
		done <- detectResult{hands: hands, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("hand detection failed: %w", r.err)
		}
		return r.hands, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrDetectTimeout
		}
		return nil, ctx.Err()
	}
}

func (a *App) onStable(sessionID, label string, confidence float64, log *logrus.Entry) {
	log.WithField("label", label).Info("app: stable letter")

	if a.store != nil {
		err := a.store.GestureLogs().Record(&store.GestureLog{
			SessionID:  sessionID,
			Gesture:    label,
			Confidence: confidence,
		})
		if err != nil {
			log.WithError(err).Warn("app: failed to record gesture log")
		}
	}

	if a.hooks != nil {
		a.hooks.Notify(hook.Event{
			Type:       hook.EventLetterStable,
			SessionID:  sessionID,
			Letter:     label,
			Confidence: confidence,
		})
	}
}

// LoadTemplates fills a centroid classifier from the stored templates and
// returns how many were loaded.
func LoadTemplates(st *store.Store, c *gesture.CentroidClassifier) (int, error) {
	stored, err := st.Templates().List()
	if err != nil {
		return 0, err
	}

	templates := make([]*gesture.Template, 0, len(stored))
	for _, t := range stored {
		templates = append(templates, &gesture.Template{
			Label:     t.Label,
			Centroid:  t.Centroid,
			Samples:   t.Samples,
			Tolerance: t.Tolerance,
		})
	}
	c.SetTemplates(templates)
	return len(templates), nil
}
