// Package worker provides the HTTP service that accepts notes and runs the
// analysis pipeline in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/notionflow-ai/internal/callback"
	"github.com/thebtf/notionflow-ai/internal/classifier"
	"github.com/thebtf/notionflow-ai/internal/clustering"
	"github.com/thebtf/notionflow-ai/internal/config"
	"github.com/thebtf/notionflow-ai/internal/embedding"
	"github.com/thebtf/notionflow-ai/internal/extract"
	"github.com/thebtf/notionflow-ai/internal/jobs"
	"github.com/thebtf/notionflow-ai/internal/keyword"
	"github.com/thebtf/notionflow-ai/internal/projects"
	"github.com/thebtf/notionflow-ai/internal/report"
	"github.com/thebtf/notionflow-ai/internal/summarizer"
	"github.com/thebtf/notionflow-ai/internal/worker/sse"
)

// Deps are the collaborators of the worker. Encoder may be nil, in which
// case embedding requests fail and pages are processed without vectors.
type Deps struct {
	Encoder    embedding.Encoder
	Summarizer summarizer.Summarizer
	Clusters   *clustering.Service
	Classifier *classifier.Classifier
	Entities   *extract.EntityExtractor
	Callbacks  *callback.Client
	Jobs       *jobs.Runner
}

// Service is the worker HTTP service.
type Service struct {
	startTime      time.Time
	config         *config.Config
	encoder        embedding.Encoder
	summarizer     summarizer.Summarizer
	keywords       *keyword.Extractor
	clusters       *clustering.Service
	classifier     *classifier.Classifier
	pipeline       *Pipeline
	analyzer       *projects.Analyzer
	reports        *report.Generator
	callbacks      *callback.Client
	jobs           *jobs.Runner
	tasks          *TaskRunner
	sseBroadcaster *sse.Broadcaster
	router         chi.Router
	server         *http.Server
	version        string
	ready          atomic.Bool
}

// NewService wires the worker and its routes.
func NewService(version string, cfg *config.Config, deps Deps) *Service {
	keywords := keyword.New()
	svc := &Service{
		version:        version,
		config:         cfg,
		encoder:        deps.Encoder,
		summarizer:     deps.Summarizer,
		keywords:       keywords,
		clusters:       deps.Clusters,
		classifier:     deps.Classifier,
		analyzer:       projects.NewAnalyzer(deps.Summarizer),
		reports:        report.NewGenerator(deps.Summarizer),
		callbacks:      deps.Callbacks,
		jobs:           deps.Jobs,
		tasks:          NewTaskRunner(cfg.Workers),
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		startTime:      time.Now(),
	}
	svc.pipeline = &Pipeline{
		encoder:    deps.Encoder,
		summarizer: deps.Summarizer,
		keywords:   keywords,
		clusters:   deps.Clusters,
		classifier: deps.Classifier,
		entities:   deps.Entities,
	}
	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHealth)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/version", s.handleVersion)
	r.Get("/api/ready", s.handleReady)
	r.Get("/api/events", s.sseBroadcaster.HandleSSE)

	r.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		r.Post("/process", s.handleProcess)
		r.Post("/embed", s.handleEmbed)
		r.Post("/tag", s.handleTag)
		r.Post("/summarize", s.handleSummarize)
		r.Post("/cluster", s.handleCluster)
		r.Post("/classify", s.handleClassify)
		r.Post("/recluster", s.handleRecluster)

		r.Route("/project", func(r chi.Router) {
			r.Post("/match", s.handleProjectMatch)
			r.Post("/analyze", s.handleProjectAnalyze)
		})
		r.Post("/report/generate", s.handleReportGenerate)
	})
}

// Handler returns the HTTP handler of the service.
func (s *Service) Handler() http.Handler {
	return s.router
}

// MarkReady marks startup as complete. Until then work routes answer 503.
func (s *Service) MarkReady() {
	s.ready.Store(true)
}

// Broadcaster returns the event broadcaster.
func (s *Service) Broadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Start listens on the configured port until Shutdown is called.
func (s *Service) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Int("port", s.config.Port).Str("version", s.version).Msg("Worker listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for background tasks.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
	}
	if err := s.tasks.Wait(ctx); err != nil {
		return fmt.Errorf("wait for background tasks: %w", err)
	}
	log.Info().Msg("Worker stopped")
	return nil
}

// requireReady rejects requests until startup has finished.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "service is starting")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs every request with zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}
