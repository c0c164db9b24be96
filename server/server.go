package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neurlang/melvoice/analysis"
	"github.com/neurlang/melvoice/audio"
)

const requestIDHeader = "X-Request-ID"

// Config controls the HTTP front end.
type Config struct {
	MaxUploadBytes int64
	// Allowed is the upload extension allow-list. Empty allows wav and mp3.
	Allowed map[audio.Format]bool
	// MaxConcurrent bounds running analyses; 0 means unbounded.
	MaxConcurrent  int
	RequestTimeout time.Duration
	// ModelErr is the startup model load failure, reported by /healthz.
	ModelErr error
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Server routes HTTP requests into an Analyzer.
type Server struct {
	analyzer *analysis.Analyzer
	cfg      Config
	slots    chan struct{}
	metrics  *Metrics
	engine   *gin.Engine
	log      *slog.Logger
}

// New builds the gin engine and registers every route.
func New(a *analysis.Analyzer, cfg Config) (*Server, error) {
	if a == nil {
		return nil, errors.New("server: analyzer is nil")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if len(cfg.Allowed) == 0 {
		cfg.Allowed = map[audio.Format]bool{audio.FormatWAV: true, audio.FormatMP3: true}
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		analyzer: a,
		cfg:      cfg,
		metrics:  NewMetrics(cfg.Registry),
		log:      cfg.Logger,
	}
	if cfg.MaxConcurrent > 0 {
		s.slots = make(chan struct{}, cfg.MaxConcurrent)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	r.Use(gin.Recovery(), s.requestID(), s.logRequests())
	r.GET("/", s.index)
	r.POST("/process", s.process)
	r.POST("/api/v1/classify", s.classify)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	s.engine = r
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics returns the service collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on addr until ctx is done, then shuts down,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down", "timeout", shutdownTimeout)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// acquire waits for an analysis slot. The returned func releases it.
func (s *Server) acquire(ctx context.Context) (func(), error) {
	if s.slots == nil {
		return func() {}, nil
	}
	select {
	case s.slots <- struct{}{}:
		return func() { <-s.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run reads the upload from c and analyzes it. The report is nil when the
// upload was rejected before analysis started.
func (s *Server) run(c *gin.Context) (*analysis.Report, error) {
	id := c.GetString("request_id")
	up, format, err := s.readUpload(c)
	if err != nil {
		s.metrics.observe(string(format), nil, err)
		return &analysis.Report{RequestID: id, Filename: up.Filename, Err: err}, err
	}
	up.RequestID = id

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	release, err := s.acquire(ctx)
	if err != nil {
		s.metrics.observe(string(format), nil, err)
		return &analysis.Report{RequestID: id, Filename: up.Filename, Audio: up.Data, Err: err}, err
	}
	defer release()

	s.metrics.InFlight.Inc()
	defer s.metrics.InFlight.Dec()

	r, err := s.analyzer.Analyze(ctx, up)
	if r.Format != "" {
		format = r.Format
	}
	s.metrics.observe(string(format), r, err)
	return r, err
}

// status maps a pipeline error to an HTTP status code.
func status(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch analysis.KindOf(err) {
	case analysis.KindUpload:
		return http.StatusBadRequest
	case analysis.KindDecode:
		return http.StatusUnprocessableEntity
	case analysis.KindModelLoad:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
