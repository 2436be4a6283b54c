// Package server exposes the form pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/formpilot/internal/formfill"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/profile"
)

// Pipeline is the document pipeline the handlers drive
type Pipeline interface {
	Analyze(ctx context.Context, pdf []byte) (*formfill.Analysis, error)
	Fill(ctx context.Context, pdf []byte, p *profile.Profile, overrides map[string]string) (*formfill.FillResult, error)
}

// Labeler translates field names
type Labeler interface {
	TranslateBatch(ctx context.Context, names []string) []string
}

// Server holds the HTTP server state and dependencies
type Server struct {
	pipeline    Pipeline
	labeler     Labeler
	logger      *logger.Logger
	corsOrigin  string
	maxUploadMB int64
	version     string
}

// Config holds server configuration
type Config struct {
	Pipeline    Pipeline
	Labeler     Labeler
	Logger      *logger.Logger
	CORSOrigin  string
	MaxUploadMB int64
	Version     string
}

const (
	defaultMaxUploadMB = 25
	maxTranslateNames  = 200
)

// NewServer creates a new server instance
func NewServer(cfg Config) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	maxUpload := cfg.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadMB
	}
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	return &Server{
		pipeline:    cfg.Pipeline,
		labeler:     cfg.Labeler,
		logger:      log,
		corsOrigin:  origin,
		maxUploadMB: maxUpload,
		version:     cfg.Version,
	}, nil
}

// SetupRoutes configures the HTTP routes
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.middleware(s.healthHandler))
	mux.HandleFunc("/analyze", s.middleware(s.analyzeHandler))
	mux.HandleFunc("/fill", s.middleware(s.fillHandler))
	mux.HandleFunc("/translate", s.middleware(s.translateHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
