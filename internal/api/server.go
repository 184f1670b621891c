// Package api serves run status, health and metrics while a scrape runs.
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/datadesk/internal/monitoring"
	"github.com/user/datadesk/internal/pipeline"
	"github.com/user/datadesk/internal/storage"
)

// Pinger is a dependency checked by /api/health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunStore looks up stored runs.
type RunStore interface {
	LatestRun(ctx context.Context, dataset string) (*storage.RunInfo, error)
}

// Server holds the dependencies for the status server.
type Server struct {
	addr       string
	router     http.Handler
	httpServer *http.Server
	progress   *pipeline.Progress
	runs       RunStore
	deps       map[string]Pinger
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

type Option func(*Server)

// WithDependency adds a named dependency to the health check.
func WithDependency(name string, p Pinger) Option {
	return func(s *Server) { s.deps[name] = p }
}

func WithRunStore(r RunStore) Option {
	return func(s *Server) { s.runs = r }
}

func NewServer(addr string, progress *pipeline.Progress, m *monitoring.Metrics, l *zap.Logger, opts ...Option) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	s := &Server{
		addr:     addr,
		progress: progress,
		deps:     map[string]Pinger{},
		metrics:  m,
		logger:   l,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
