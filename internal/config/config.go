// Package config loads SignBridge settings from an optional YAML file and
// SIGNBRIDGE_* environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all SignBridge configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Stabilizer StabilizerConfig `yaml:"stabilizer"`
	History    HistoryConfig    `yaml:"history"`
	Detector   DetectorConfig   `yaml:"detector"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Store      StoreConfig      `yaml:"store"`
	Hooks      HooksConfig      `yaml:"hooks"`
	Camera     CameraConfig     `yaml:"camera"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	RateLimit      float64       `yaml:"rate_limit" validate:"gte=0"` // requests per second per client, 0 disables
	RateBurst      int           `yaml:"rate_burst" validate:"gte=0"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	StaticDir      string        `yaml:"static_dir"`
	TrustedProxies []string      `yaml:"trusted_proxies" validate:"dive,cidr|ip"`
}

// StabilizerConfig holds the majority-vote thresholds.
type StabilizerConfig struct {
	Window        int     `yaml:"window" validate:"gte=1"`
	Threshold     int     `yaml:"threshold" validate:"gte=1,ltefield=Window"`
	MinConfidence float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
}

// HistoryConfig selects where session windows live.
type HistoryConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=memory redis"`
	TTL           time.Duration `yaml:"ttl"`
	MaxSessions   int           `yaml:"max_sessions" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
}

// DetectorConfig holds hand detector settings.
type DetectorConfig struct {
	ScriptPath      string        `yaml:"script_path"`
	PythonPath      string        `yaml:"python_path"`
	MaxHands        int           `yaml:"max_hands" validate:"gte=1"`
	MinConfidence   float64       `yaml:"min_confidence" validate:"gte=0,lte=1"`
	MinTrackingConf float64       `yaml:"min_tracking_confidence" validate:"gte=0,lte=1"`
	Timeout         time.Duration `yaml:"timeout"`
}

// ClassifierConfig selects the letter classifier.
type ClassifierConfig struct {
	Kind       string `yaml:"kind" validate:"oneof=placeholder centroid onnx"`
	ModelPath  string `yaml:"model_path" validate:"required_if=Kind onnx"`
	ORTLibPath string `yaml:"ort_lib_path"`
}

// StoreConfig holds database settings.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// HooksConfig holds stable-letter hook settings.
type HooksConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// CameraConfig enables the local camera loop.
type CameraConfig struct {
	Enabled         bool    `yaml:"enabled"`
	DeviceID        int     `yaml:"device_id" validate:"gte=0"`
	MotionThreshold float64 `yaml:"motion_threshold" validate:"gte=0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// DataDir returns ~/.signbridge, or .signbridge if the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signbridge"
	}
	return filepath.Join(home, ".signbridge")
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := DataDir()
	return Config{
		Server: ServerConfig{
			Addr:           ":8000",
			RateLimit:      20,
			RateBurst:      40,
			MaxUploadBytes: 10 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		Stabilizer: StabilizerConfig{
			Window:        10,
			Threshold:     7,
			MinConfidence: 0.8,
		},
		History: HistoryConfig{
			Backend:       "memory",
			TTL:           30 * time.Minute,
			MaxSessions:   10000,
			SweepInterval: time.Minute,
		},
		Detector: DetectorConfig{
			MaxHands:        1,
			MinConfidence:   0.4,
			MinTrackingConf: 0.4,
			Timeout:         10 * time.Second,
		},
		Classifier: ClassifierConfig{
			Kind: "placeholder",
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "signbridge.db"),
		},
		Hooks: HooksConfig{
			Dir:     filepath.Join(dataDir, "hooks"),
			Timeout: 5 * time.Second,
		},
		Camera: CameraConfig{
			MotionThreshold: 1.0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// SIGNBRIDGE_CONFIG (if any) and environment variables, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("SIGNBRIDGE_CONFIG"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks value ranges and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.Addr = getenv("SIGNBRIDGE_ADDR", c.Server.Addr)
	c.Server.RateLimit = getenvFloat("SIGNBRIDGE_RATE_LIMIT", c.Server.RateLimit)
	c.Server.RateBurst = getenvInt("SIGNBRIDGE_RATE_BURST", c.Server.RateBurst)
	c.Server.MaxUploadBytes = int64(getenvInt("SIGNBRIDGE_MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))
	c.Server.StaticDir = getenv("SIGNBRIDGE_STATIC_DIR", c.Server.StaticDir)
	c.Server.TrustedProxies = getenvList("SIGNBRIDGE_TRUSTED_PROXIES", c.Server.TrustedProxies)

	c.Stabilizer.Window = getenvInt("SIGNBRIDGE_STABILITY_WINDOW", c.Stabilizer.Window)
	c.Stabilizer.Threshold = getenvInt("SIGNBRIDGE_STABILITY_THRESHOLD", c.Stabilizer.Threshold)
	c.Stabilizer.MinConfidence = getenvFloat("SIGNBRIDGE_CONFIDENCE_THRESHOLD", c.Stabilizer.MinConfidence)

	c.History.Backend = getenv("SIGNBRIDGE_HISTORY_BACKEND", c.History.Backend)
	c.History.TTL = getenvDuration("SIGNBRIDGE_HISTORY_TTL", c.History.TTL)
	c.History.MaxSessions = getenvInt("SIGNBRIDGE_HISTORY_MAX_SESSIONS", c.History.MaxSessions)
	c.History.RedisAddr = getenv("SIGNBRIDGE_REDIS_ADDR", c.History.RedisAddr)
	c.History.RedisPassword = getenv("SIGNBRIDGE_REDIS_PASSWORD", c.History.RedisPassword)
	c.History.RedisDB = getenvInt("SIGNBRIDGE_REDIS_DB", c.History.RedisDB)

	c.Detector.ScriptPath = getenv("SIGNBRIDGE_DETECTOR_SCRIPT", c.Detector.ScriptPath)
	c.Detector.PythonPath = getenv("SIGNBRIDGE_DETECTOR_PYTHON", c.Detector.PythonPath)
	c.Detector.MinConfidence = getenvFloat("SIGNBRIDGE_DETECTOR_MIN_CONFIDENCE", c.Detector.MinConfidence)
	c.Detector.MinTrackingConf = getenvFloat("SIGNBRIDGE_DETECTOR_MIN_TRACKING", c.Detector.MinTrackingConf)
	c.Detector.Timeout = getenvDuration("SIGNBRIDGE_DETECT_TIMEOUT", c.Detector.Timeout)

	c.Classifier.Kind = getenv("SIGNBRIDGE_CLASSIFIER", c.Classifier.Kind)
	c.Classifier.ModelPath = getenv("SIGNBRIDGE_MODEL_PATH", c.Classifier.ModelPath)
	c.Classifier.ORTLibPath = getenv("SIGNBRIDGE_ORT_LIB", c.Classifier.ORTLibPath)

	c.Store.Path = getenv("SIGNBRIDGE_DB_PATH", c.Store.Path)

	c.Hooks.Dir = getenv("SIGNBRIDGE_HOOKS_DIR", c.Hooks.Dir)
	c.Hooks.Timeout = getenvDuration("SIGNBRIDGE_HOOK_TIMEOUT", c.Hooks.Timeout)

	c.Camera.Enabled = getenvBool("SIGNBRIDGE_CAMERA", c.Camera.Enabled)
	c.Camera.DeviceID = getenvInt("SIGNBRIDGE_CAMERA_DEVICE", c.Camera.DeviceID)
	c.Camera.MotionThreshold = getenvFloat("SIGNBRIDGE_MOTION_THRESHOLD", c.Camera.MotionThreshold)

	c.Log.Level = getenv("SIGNBRIDGE_LOG_LEVEL", c.Log.Level)
	c.Log.File = getenv("SIGNBRIDGE_LOG_FILE", c.Log.File)
	c.Log.JSON = getenvBool("SIGNBRIDGE_LOG_JSON", c.Log.JSON)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvList splits a comma separated variable, dropping empty items.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
