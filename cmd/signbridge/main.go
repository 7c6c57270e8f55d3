package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/gesture"
	"github.com/ayusman/signbridge/internal/hook"
	"github.com/ayusman/signbridge/internal/logging"
	"github.com/ayusman/signbridge/internal/server"
	"github.com/ayusman/signbridge/internal/stability"
	"github.com/ayusman/signbridge/internal/store"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "signbridge: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, JSON: cfg.Log.JSON})
	if err != nil {
		fmt.Fprintf(os.Stderr, "signbridge: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("signbridge: exiting")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{
		"service": app.ServiceName,
		"version": app.Version,
	}).Info("Starting SignBridge")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConf,
		ScriptPath:      cfg.Detector.ScriptPath,
		PythonPath:      cfg.Detector.PythonPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize hand detector: %w", err)
	}

	classifier, closeClassifier, err := newClassifier(cfg.Classifier, st, log)
	if err != nil {
		return err
	}
	defer closeClassifier()

	history, err := newHistory(ctx, cfg.History, cfg.Stabilizer.Window, log)
	if err != nil {
		return err
	}

	stabilizer := stability.New(stability.Config{
		Window:        cfg.Stabilizer.Window,
		Threshold:     cfg.Stabilizer.Threshold,
		MinConfidence: cfg.Stabilizer.MinConfidence,
	}, history)

	var hooks *hook.Dispatcher
	if cfg.Hooks.Dir != "" {
		mgr := hook.NewManager(cfg.Hooks.Dir)
		if err := mgr.Discover(); err != nil {
			log.WithError(err).Warn("Failed to discover hooks")
		}
		if n := len(mgr.List()); n > 0 {
			log.WithFields(logrus.Fields{"dir": cfg.Hooks.Dir, "count": n}).Info("Loaded hooks")
			hooks = hook.NewDispatcher(mgr, hook.NewExecutor(cfg.Hooks.Timeout))
		}
	}

	a := app.New(app.Config{
		Detector:      det,
		Classifier:    classifier,
		Stabilizer:    stabilizer,
		Store:         st,
		Hooks:         hooks,
		DetectTimeout: cfg.Detector.Timeout,
	})
	defer a.Close()

	if cfg.Camera.Enabled {
		go runCamera(ctx, a, cfg.Camera, log)
	}

	srv := server.New(server.Config{
		App:            a,
		Store:          st,
		StaticDir:      cfg.Server.StaticDir,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		TrustedProxies: cfg.Server.TrustedProxies,
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}

// newClassifier builds the configured classifier and a func releasing it.
func newClassifier(cfg config.ClassifierConfig, st *store.Store, log *logrus.Logger) (gesture.Classifier, func(), error) {
	noop := func() {}

	switch cfg.Kind {
	case "centroid":
		c := gesture.NewCentroidClassifier()
		n, err := app.LoadTemplates(st, c)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to load templates: %w", err)
		}
		if n == 0 {
			return nil, noop, fmt.Errorf("no letter templates in %s, run signbridge-train first", st.Path())
		}
		log.WithField("templates", n).Info("Using centroid classifier")
		return c, noop, nil

	case "onnx":
		c, err := gesture.NewONNXClassifier(cfg.ModelPath, cfg.ORTLibPath)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to load ONNX model: %w", err)
		}
		log.WithField("model", cfg.ModelPath).Info("Using ONNX classifier")
		return c, func() { c.Close() }, nil

	default:
		log.Warn("Using placeholder classifier, every hand is reported as A")
		return gesture.NewPlaceholderClassifier(), noop, nil
	}
}

// newHistory builds the session window store for the configured backend.
func newHistory(ctx context.Context, cfg config.HistoryConfig, window int, log *logrus.Logger) (stability.HistoryStore, error) {
	if cfg.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := stability.NewRedisStore(client, window, cfg.TTL)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.WithField("addr", cfg.RedisAddr).Info("Session history in redis")
		return rs, nil
	}

	ms := stability.NewMemoryStore(window, stability.MemoryOptions{TTL: cfg.TTL, MaxSessions: cfg.MaxSessions})
	if cfg.TTL > 0 && cfg.SweepInterval > 0 {
		go ms.Run(ctx, cfg.SweepInterval)
	}
	return ms, nil
}

func runCamera(ctx context.Context, a *app.App, cfg config.CameraConfig, log *logrus.Logger) {
	cam := capture.NewCamera(cfg.DeviceID)
	motion := capture.NewMotionDetector(cfg.MotionThreshold)

	log.WithField("device", cfg.DeviceID).Info("Camera mode enabled")
	err := a.RunCamera(ctx, cam, motion, func(r *app.Result) {
		if r.Stable {
			log.WithFields(logrus.Fields{
				"label":      r.Gesture,
				"confidence": r.Confidence,
			}).Info("Camera letter")
		}
	})
	if err != nil {
		log.WithError(err).Error("Camera loop stopped")
	}
}
