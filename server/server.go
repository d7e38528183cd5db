package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
	"github.com/xhad/articlerag/pkg/pipeline"
)

// Service is the set of flows the HTTP surface exposes.
type Service interface {
	Extract(ctx context.Context, url string) (*models.Article, error)
	Embed(ctx context.Context, url, articleID string) (*pipeline.EmbedResult, error)
	Ask(ctx context.Context, articleID, question string) (*models.AskResult, error)
	AskStream(ctx context.Context, articleID, question string, onToken func(string) error) (*models.AskResult, error)
	Quiz(ctx context.Context, url, articleID string) (*pipeline.QuizResult, error)
	Summarize(ctx context.Context, url string) (string, error)
	Process(ctx context.Context, url, articleID string) (*pipeline.ProcessResult, error)
}

var _ Service = (*pipeline.Pipeline)(nil)

type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		AllowedOrigins: []string{"*"},
		RequestTimeout: 120 * time.Second,
		MaxBodyBytes:   5 << 20,
	}
}

type Server struct {
	config     Config
	httpServer *http.Server
	router     *http.ServeMux
	service    Service
}

func NewServer(cfg Config, service Service) *Server {
	defaults := DefaultConfig()
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaults.AllowedOrigins
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}

	s := &Server{
		config:  cfg,
		router:  http.NewServeMux(),
		service: service,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)

	s.router.HandleFunc("POST /extract", s.handleExtract)
	s.router.HandleFunc("POST /embed", s.handleEmbed)
	s.router.HandleFunc("POST /ask", s.handleAsk)
	s.router.HandleFunc("POST /quiz", s.handleQuiz)
	s.router.HandleFunc("POST /summary", s.handleSummary)
	s.router.HandleFunc("POST /process", s.handleProcess)

	// Streaming ask
	s.router.HandleFunc("GET /ws", s.handleWebSocket)

	s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = NewCORSMiddleware(s.config.AllowedOrigins).Handler(handler)
	handler = NewLoggingMiddleware().Handler(handler)
	handler = NewRecoveryMiddleware().Handler(handler)
	return handler
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.config.RequestTimeout)
}
