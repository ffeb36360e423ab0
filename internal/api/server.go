// Package api exposes the workflows over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/pointboard/internal/core/domain"
)

// Completer completes tasks.
type Completer interface {
	Complete(ctx context.Context, taskID string, caller domain.Caller) (*domain.Task, error)
}

// Reorderer moves the lists of a board.
type Reorderer interface {
	Reorder(ctx context.Context, boardID string, positions []domain.ListPosition, actorID string) error
}

// PointsBook reads and adjusts user points.
type PointsBook interface {
	GrantManual(ctx context.Context, beneficiaryID string, amount int64, actorID, note string) (*domain.LedgerEntry, error)
	DeductManual(ctx context.Context, beneficiaryID string, amount int64, actorID, note string) (*domain.LedgerEntry, error)
	HistoryFor(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error)
	BalanceOf(ctx context.Context, userID string) (int64, error)
}

// Deps are the collaborators the HTTP handlers call.
type Deps struct {
	Completion Completer
	Reorder    Reorderer
	Points     PointsBook
	Health     *HealthChecker
}

// Server holds the chi router and the underlying http.Server.
type Server struct {
	router chi.Router
	server *http.Server
	deps   Deps
	log    *slog.Logger
}

// NewServer creates a Server with all routes configured.
func NewServer(deps Deps, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{deps: deps, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	// Operational endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/health/detailed", s.handleHealthDetailed)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(callerFromHeaders)

		r.Patch("/tasks/{taskID}/complete", s.handleCompleteTask)
		r.Patch("/boards/{boardID}/lists/reorder", s.handleReorderLists)

		r.Get("/users/{userID}/points", s.handleBalance)
		r.Get("/users/{userID}/points/history", s.handleHistory)
		r.Post("/users/{userID}/points", s.handleAdjustPoints)
	})

	s.router = r
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
