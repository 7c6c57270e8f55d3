// Package server provides the HTTP surface of the SignBridge recognition
// service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/store"
)

// DefaultMaxUploadBytes caps request bodies when Config leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// Config holds the server configuration.
type Config struct {
	App       *app.App
	Store     *store.Store
	StaticDir string
	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit      float64
	RateBurst      int
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// TrustedProxies are IPs or CIDR ranges whose X-Forwarded-For header is
	// believed. Requests from any other peer are keyed on the peer address.
	TrustedProxies []string
}

// Server represents the HTTP server for the recognition service.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	limiter *rateLimiter
	start   time.Time
	httpSrv *http.Server
	sockets *socketSet
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if config.Store == nil && config.App != nil {
		config.Store = config.App.Store()
	}

	proxies, err := parseTrustedProxies(config.TrustedProxies)
	if err != nil {
		logrus.WithError(err).Warn("server: ignoring trusted proxies")
		proxies = nil
	}

	s := &Server{
		config:  config,
		mux:     http.NewServeMux(),
		start:   time.Now(),
		sockets: newSocketSet(),
	}
	s.setupRoutes()

	mws := []middleware{recoverer, requestID, accessLog(proxies), cors}
	if config.RateLimit > 0 {
		s.limiter = newRateLimiter(rate.Limit(config.RateLimit), config.RateBurst, proxies)
		mws = append(mws, s.limiter.middleware)
	}
	s.handler = chain(s.mux, mws...)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/{$}", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/recognize_gesture/", s.handleRecognize)
	s.mux.HandleFunc("/recognize_gesture_base64/", s.handleRecognizeBase64)
	s.mux.HandleFunc("/clear_session/", s.handleClearSession)
	s.mux.HandleFunc("/ws/recognize", s.handleWebSocket)

	// Session and translation records need the store
	if s.config.Store != nil {
		s.mux.HandleFunc("/api/sessions", s.handleCreateSession)
		s.mux.HandleFunc("/api/sessions/{id}/stats", s.handleSessionStats)
		s.mux.HandleFunc("/api/translations", s.handleCreateTranslation)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.StaticDir))))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until it stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a server started with ListenAndServe. Open
// WebSocket connections are closed and their handlers waited for, so no
// recognition runs once Shutdown returns nil.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	if werr := s.sockets.closeAll(ctx); err == nil {
		err = werr
	}
	return err
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.limiter.sweep(now)
		}
	}
}
