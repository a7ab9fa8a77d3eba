// Package api exposes the chat and upload pipeline over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fanlore/fanlore/internal/pdf"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Gate        AccessChecker // Required
	Answerer    Answerer      // Required
	Contents    ContentStore  // Required
	Ingestor    Ingestor      // Required
	Pool        *pgxpool.Pool // Optional: nil disables pool stats in /ready
	UploadDir   string        // Directory for stored PDFs (default "uploads")
	MaxUpload   int64         // Max upload size in bytes (default 20 MiB)
	CORSOrigins []string      // Allowed origins for CORS
	TrustProxy  bool          // Trust X-Real-IP/X-Forwarded-For headers
	RateLimit   float64       // Tokens per second per IP (0 = default 10)
	RateBurst   int           // Rate limiter burst size per IP (0 = default 20)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Gate == nil {
		return nil, errors.New("access gate is required")
	}
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if cfg.Contents == nil {
		return nil, errors.New("content store is required")
	}
	if cfg.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	maxUpload := cfg.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}

	ch := &chatHandler{
		gate:     cfg.Gate,
		answerer: cfg.Answerer,
		logger:   logger,
	}
	uh := &uploadHandler{
		contents:  cfg.Contents,
		ingestor:  cfg.Ingestor,
		uploadDir: uploadDir,
		maxBytes:  maxUpload,
		extract:   pdf.ExtractText,
		logger:    logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("GET /api/chat/{creatorId}", ch.public)
	mux.HandleFunc("POST /api/files/upload", uh.upload)

	// Stored PDFs are linked from upload responses.
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(uploadDir))))

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 10
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 20
	}
	rl := newRateLimiter(limit, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
