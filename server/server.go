// Package server serves a directory over HTTP rendering components in HTML
// pages on the fly.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"compssr/dom"
	"compssr/ssr"
)

const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Server renders HTML files found under root, everything else is served
// as is.
type Server struct {
	renderer *ssr.Renderer
	root     string
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics
	files    http.Handler
}

type Option func(*Server)

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics registers render metrics with reg and exposes reg on
// MetricsPath.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

func New(renderer *ssr.Renderer, root string, opts ...Option) (*Server, error) {
	if renderer == nil {
		return nil, errors.New("renderer is not prepared")
	}
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("unable to access root directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	s := &Server{
		renderer: renderer,
		root:     root,
		log:      zap.NewNop(),
		files:    http.FileServer(http.Dir(root)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("server")
	if s.registry != nil {
		s.metrics = newMetrics(s.registry)
	}
	return s, nil
}

// Handler returns router serving root, health check and (when enabled)
// metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: zap.NewStdLog(s.log), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat(HealthPath))

	if s.registry != nil {
		r.Method(http.MethodGet, MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}
	r.Get("/*", s.serve)
	r.Head("/*", s.serve)
	return r
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+chi.URLParam(r, "*"))))

	fi, err := os.Stat(name)
	if err == nil && fi.IsDir() {
		index := filepath.Join(name, "index.html")
		if _, er := os.Stat(index); er != nil {
			s.files.ServeHTTP(w, r)
			return
		}
		name = index
	} else if err != nil || !dom.IsHTMLName(name) {
		s.files.ServeHTTP(w, r)
		return
	}
	s.renderPage(w, r, name)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string) {
	data, err := os.ReadFile(name)
	if err != nil {
		s.log.Warn("Unable to read page", zap.String("file", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	markup, _, err := dom.Decode(data, nil)
	if err != nil {
		s.log.Error("Unable to decode page", zap.String("file", name), zap.Error(err))
		http.Error(w, "unable to decode page", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	res, err := s.renderer.RenderResult(markup)
	var tags []string
	if res != nil {
		tags = res.Tags
	}
	s.metrics.observe(time.Since(start).Seconds(), tags, err)
	if err != nil {
		s.log.Error("Unable to render page", zap.String("file", name), zap.Error(err))
		http.Error(w, "unable to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(res.HTML)); err != nil {
		s.log.Debug("Unable to write response", zap.Error(err))
	}
}

// Serve accepts connections on l until ctx is cancelled, then shuts server
// down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.log),
	}

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(l)
	}()
	s.log.Info("Serving", zap.String("address", l.Addr().String()), zap.String("root", s.root), zap.Bool("metrics", s.registry != nil))

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("unable to shutdown server: %w", err)
	}
	if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}
