package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/config"
	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/pipeline"
	"github.com/paiml/rosetta-ruchy-sub000/internal/service/stats"
)

// Pipeline is the request orchestrator as seen by the HTTP layer.
type Pipeline interface {
	Translate(ctx context.Context, req domain.TranslateRequest, observe pipeline.Observer) (*domain.TranslationResult, error)
	Analyze(ctx context.Context, code, language string, analysisType domain.AnalysisType) (*domain.AnalysisReport, error)
	Verify(ctx context.Context, code string) (*domain.VerifyReport, error)
}

type Registry interface {
	SupportedLanguages() []string
	Target() *domain.Profile
}

// StatsReader serves GET /stats.
type StatsReader interface {
	Snapshot(ctx context.Context) (stats.Snapshot, error)
}

const apiPrefix = "/api/v1"

type Server struct {
	cfg          config.ServerConfig
	pipeline     Pipeline
	stats        StatsReader
	sessions     Sessions
	capabilities capabilitiesResponse
	upgrader     websocket.Upgrader
	logger       *zap.Logger
	httpServer   *http.Server
}

func New(cfg config.ServerConfig, p Pipeline, registry Registry, statsReader StatsReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:          cfg,
		pipeline:     p,
		stats:        statsReader,
		capabilities: buildCapabilities(registry),
		logger:       logger,
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: constants.Timeouts.WSHandshake,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler builds the router. Every route is served at the root and under
// /api/v1.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, s.accessLog, s.recoverer, s.cors)
	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Get("/", s.handleRoot)
	s.mount(r)
	r.Route(apiPrefix, s.mount)
	return r
}

func (s *Server) mount(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/capabilities", s.handleCapabilities)
	r.Get("/stats", s.handleStats)
	r.Get("/ws/translate", s.handleWatch)

	r.Group(func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/translate", s.handleTranslate)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/verify", s.handleVerify)
	})
	s.mountSessions(r)
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening",
		zap.String("addr", s.httpServer.Addr),
		zap.String("capabilities", "http://"+s.httpServer.Addr+apiPrefix+"/capabilities"),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
