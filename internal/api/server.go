// Package api serves the analyzers over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/alevsk/mpd-scope/internal/analysis"
	"github.com/alevsk/mpd-scope/internal/logger"
	"github.com/alevsk/mpd-scope/internal/metrics"
	"github.com/alevsk/mpd-scope/internal/segments"
	"github.com/alevsk/mpd-scope/internal/types"
)

// defaultMaxBodyBytes bounds a request body, which carries up to two manifests
const defaultMaxBodyBytes = 20 << 20

const defaultShutdownTimeout = 5 * time.Second

// Options configures the API server
type Options struct {
	Analysis analysis.Options
	Segments segments.Config
	// Timeout bounds reads and writes of a request
	Timeout time.Duration
	// MaxBodyBytes bounds a request body, 0 means the default
	MaxBodyBytes int64
}

// DefaultOptions returns the default server options
func DefaultOptions() Options {
	return Options{
		Analysis: analysis.DefaultOptions(),
		Segments: segments.DefaultConfig(),
		Timeout:  30 * time.Second,
	}
}

// Server represents the API server
type Server struct {
	router   *mux.Router
	opts     Options
	analyzer *analysis.Analyzer
	metrics  *metrics.Metrics
}

// NewServer creates a new API server instance
func NewServer(opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{
		router:   mux.NewRouter(),
		opts:     opts,
		analyzer: analysis.New(opts.Analysis),
		metrics:  metrics.NewMetrics("mpd_scope"),
	}
	s.routes()
	return s
}

// routes sets up the API routes
func (s *Server) routes() {
	s.router.Use(s.instrument)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	v1.HandleFunc("/analyze", s.analyze).Methods(http.MethodPost)
	v1.HandleFunc("/validate", s.validate).Methods(http.MethodPost)
	v1.HandleFunc("/segments", s.segments).Methods(http.MethodPost)

	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the root handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts the server down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.Timeout,
		WriteTimeout: s.opts.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.Timeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Info().Msg("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics per route template
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordRequest(route, rec.code, time.Since(start))
		logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("code", rec.code).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to encode health check response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	Manifest string `json:"manifest"`
	// Previous is the prior refresh of the same stream, optional
	Previous string `json:"previous,omitempty"`
}

// ValidateRequest is the body of POST /api/v1/validate
type ValidateRequest struct {
	Source string `json:"source"`
	SSAI   string `json:"ssai"`
}

// SegmentsRequest is the body of POST /api/v1/segments
type SegmentsRequest struct {
	Manifest string `json:"manifest"`
	// Downloads are observed download times in seconds keyed by
	// "period/representationId/segmentIndex", the period being its id or,
	// without one, its index
	Downloads map[string]float64 `json:"downloads"`
	// Config overrides the server segment policy when set
	Config *segments.Config `json:"config,omitempty"`
}

// SegmentsResponse is the body returned by POST /api/v1/segments
type SegmentsResponse struct {
	Result *types.Result   `json:"result"`
	Report segments.Report `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Manifest == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("manifest is required"))
		return
	}

	res := s.analyzer.Analyze(r.Context(), req.Manifest, req.Previous)
	s.metrics.RecordResult("analyze", res)
	s.writeJSON(w, resultStatus(res), res)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Source == "" || req.SSAI == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("source and ssai are required"))
		return
	}

	res := s.analyzer.AnalyzePair(r.Context(), req.Source, req.SSAI)
	s.metrics.RecordResult("validate", res)
	s.writeJSON(w, resultStatus(res), res)
}

func (s *Server) segments(w http.ResponseWriter, r *http.Request) {
	var req SegmentsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Manifest == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("manifest is required"))
		return
	}
	for key, v := range req.Downloads {
		if v < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("negative download time for %s", key))
			return
		}
	}

	cfg := s.opts.Segments
	if req.Config != nil {
		cfg = *req.Config
	}
	res, report := s.analyzer.AnalyzeSegments(r.Context(), req.Manifest, req.Downloads, cfg)
	s.metrics.RecordResult("segments", res)
	if res.Success {
		s.metrics.RecordSegments(report.TotalSegments, report.ViolatingSegments)
	}
	s.writeJSON(w, resultStatus(res), SegmentsResponse{Result: res, Report: report})
}

// resultStatus maps an unparsable manifest to 422, the request itself was fine
func resultStatus(res *types.Result) int {
	if !res.Success {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}
