// Package server is the HTTP boundary: origin policy, authentication, quota and error mapping
// around the roster pipeline.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/auth"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/pipeline"
	"github.com/joseph-ayodele/roster-scan/internal/repository"
	"github.com/joseph-ayodele/roster-scan/internal/usage"
)

// Scanner runs the roster pipeline phases.
type Scanner interface {
	Questions(ctx context.Context, image []byte, mimeType string) (*entity.QuestionsResult, error)
	Filter(ctx context.Context, in pipeline.FilterInput) (*entity.ProcessResult, error)
	Process(ctx context.Context, in pipeline.LegacyInput) (*entity.ProcessResult, error)
}

// Deps are the collaborators the HTTP boundary needs.
type Deps struct {
	Config   common.ServerConfig
	Scanner  Scanner
	Governor *usage.Governor
	Audit    repository.AuditRepository
	Verifier auth.Verifier
	Logger   *slog.Logger
}

type Server struct {
	cfg      common.ServerConfig
	scanner  Scanner
	governor *usage.Governor
	audit    repository.AuditRepository
	verifier auth.Verifier
	limiter  *callerLimiter
	logger   *slog.Logger
}

func New(d Deps) *Server {
	cfg := d.Config
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = constants.MaxImageBytes
	}
	return &Server{
		cfg:      cfg,
		scanner:  d.Scanner,
		governor: d.Governor,
		audit:    d.Audit,
		verifier: d.Verifier,
		limiter:  newCallerLimiter(cfg.RateLimitPerMinute),
		logger:   common.LoggerOr(d.Logger),
	}
}

// Handler builds the gin engine. The scan endpoint is served at "/" and "/scan".
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		requestIDMiddleware(),
		recoveryMiddleware(s.logger),
		accessLogMiddleware(s.logger),
		corsMiddleware(OriginPolicy{
			Allowed:       s.cfg.AllowedOrigins,
			PreviewSuffix: s.cfg.PreviewSuffix,
			PreviewMarker: s.cfg.PreviewMarker,
		}, s.logger),
	)
	r.NoMethod(func(c *gin.Context) {
		writeFailure(c, http.StatusMethodNotAllowed, constants.ErrInvalidInput, "method not allowed", nil)
	})
	r.NoRoute(func(c *gin.Context) {
		writeFailure(c, http.StatusNotFound, constants.ErrInvalidInput, "not found", nil)
	})

	scan := []gin.HandlerFunc{
		authMiddleware(s.verifier, s.logger),
		rateLimitMiddleware(s.limiter, s.logger),
		s.handleScan,
	}
	for _, path := range []string{"/", "/scan"} {
		r.POST(path, scan...)
		// preflight is answered by corsMiddleware
		r.OPTIONS(path, func(*gin.Context) {})
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.HTTPAddr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout+5*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
