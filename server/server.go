// Package server exposes simulation runs and their stabilization reports
// over an HTTP/JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Server owns the run store and the gin router.
type Server struct {
	cfg    Config
	store  *Store
	router *gin.Engine
}

// New builds a Server with its routes registered.
func New(cfg Config) *Server {
	registerValidators()
	if cfg.MaxCells <= 0 {
		cfg.MaxCells = DefaultMaxCells
	}

	s := &Server{
		cfg:    cfg,
		store:  NewStore(cfg.MaxRuns),
		router: gin.New(),
	}
	s.router.Use(gin.Recovery(), requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := s.router.Group("/v1")
	{
		v1.POST("/preview", s.handlePreview)

		runs := v1.Group("/runs")
		{
			runs.POST("", rateLimit(s.cfg.RunRate, s.cfg.RunBurst), s.handleCreateRun)
			runs.GET("", s.handleListRuns)
			runs.GET("/:id", s.handleGetRun)
			runs.DELETE("/:id", s.handleDeleteRun)
			runs.GET("/:id/stabilization", s.handleStabilization)
			runs.GET("/:id/coders/:index", s.handleCoder)
			runs.GET("/:id/accuracies", s.handleAccuracies)
		}
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("stabsim API listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logrus.Info("Shutting down stabsim API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

// rateLimit rejects requests beyond r per second with 429. r <= 0 disables it.
func rateLimit(r float64, burst int) gin.HandlerFunc {
	if r <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := rate.NewLimiter(rate.Limit(r), max(1, burst))
	return func(c *gin.Context) {
		if !limiter.Allow() {
			abortWithError(c, http.StatusTooManyRequests, fmt.Errorf("run rate limit of %g/s exceeded", r))
			return
		}
		c.Next()
	}
}
