// Package api exposes the job API over HTTP: submit an analysis, poll
// its status, stream its progress over SSE, cancel it. Jobs execute on a
// bounded worker pool; one goroutine owns each run.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/analyst/internal/engine"
	"github.com/leapstack-labs/analyst/internal/notifier"
	"github.com/leapstack-labs/analyst/internal/store"
	"github.com/leapstack-labs/analyst/pkg/core"
)

const defaultWorkers = 4

// Config holds configuration for the API server.
type Config struct {
	Engine   *engine.Engine
	Store    store.Store
	Notifier *notifier.Notifier
	Port     int
	// Workers bounds how many jobs run concurrently.
	Workers int
	Logger  *slog.Logger
}

// Server is the job API server.
type Server struct {
	engine   *engine.Engine
	store    store.Store
	notifier *notifier.Notifier
	logger   *slog.Logger
	port     int
	pool     pond.Pool

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	n := cfg.Notifier
	if n == nil {
		n = notifier.New()
	}
	return &Server{
		engine:   cfg.Engine,
		store:    cfg.Store,
		notifier: n,
		logger:   logger,
		port:     cfg.Port,
		pool:     pond.NewPool(workers),
		running:  make(map[string]context.CancelFunc),
	}
}

// Notifier returns the event broadcaster, so the engine observer can be
// wired to it.
func (s *Server) Notifier() *notifier.Notifier { return s.notifier }

// ProgressObserver returns an engine observer that streams each recorded
// step, plus a progress snapshot, to the job's SSE subscribers.
func ProgressObserver(n *notifier.Notifier) func(*core.AnalystState, core.ExecutionStep) {
	return func(state *core.AnalystState, step core.ExecutionStep) {
		n.Publish(notifier.Event{
			Type:  notifier.EventStep,
			JobID: state.JobID,
			Step:  &step,
		})
		n.Publish(notifier.Event{
			Type:  notifier.EventProgress,
			JobID: state.JobID,
			Progress: &notifier.Progress{
				Iteration:   state.Iteration,
				QueriesUsed: state.Budget.QueriesUsed,
				SecondsUsed: state.Budget.SecondsUsed,
			},
		})
	}
}

// Routes builds the HTTP routing table.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/dialects", s.handleDialects)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleSubmitJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Delete("/{id}", s.handleCancelJob)
			r.Get("/{id}/events", s.handleJobEvents)
		})
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting api server", "addr", addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		s.logger.Debug("shutting down api server")
		s.cancelAllJobs()
		s.pool.StopAndWait()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// startJob registers the cancel handle and schedules the run.
func (s *Server) startJob(jobID string, spec core.QuerySpec) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[jobID] = cancel
	s.mu.Unlock()

	s.pool.Submit(func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.running, jobID)
			s.mu.Unlock()
		}()
		s.runJob(ctx, jobID, spec)
	})
}

func (s *Server) runJob(ctx context.Context, jobID string, spec core.QuerySpec) {
	bg := context.Background()

	if err := s.store.SetStatus(bg, jobID, core.JobRunning); err != nil {
		s.logger.Error("failed to mark job running", "job_id", jobID, "error", err)
	}
	s.notifier.Publish(notifier.Event{Type: notifier.EventStatus, JobID: jobID, Status: core.JobRunning})

	state, err := s.engine.Run(ctx, jobID, spec)
	if err != nil {
		// Rejection after admission is unexpected; submissions are
		// validated up front.
		s.logger.Error("job rejected at run time", "job_id", jobID, "error", err)
		_ = s.store.CompleteJob(bg, jobID, core.JobFailed, nil, err.Error())
		s.notifier.Publish(notifier.Event{Type: notifier.EventError, JobID: jobID, Error: err.Error()})
		return
	}

	status := core.JobCompleted
	if state.Cancelled {
		status = core.JobCancelled
	}
	result := state.ToRunResult()
	if err := s.store.CompleteJob(bg, jobID, status, result, ""); err != nil {
		s.logger.Error("failed to persist job result", "job_id", jobID, "error", err)
	}
	s.notifier.Publish(notifier.Event{
		Type:   notifier.EventCompletion,
		JobID:  jobID,
		Status: status,
		Result: result,
	})
}

func (s *Server) cancelJob(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.running[jobID]
	if ok {
		cancel()
	}
	return ok
}

func (s *Server) cancelAllJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.running {
		cancel()
	}
}
