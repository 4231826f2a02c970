// Package httpapi exposes the JSON API over gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"datashare/internal/auth"
	"datashare/internal/config"
	"datashare/internal/constants"
	"datashare/internal/metrics"
	"datashare/internal/pricing"
	"datashare/internal/services"
	"datashare/internal/store"
)

// Deps holds the services behind the API
type Deps struct {
	Store      *store.Store
	Accounts   *services.AccountService
	Sessions   *services.SessionService
	Settlement *services.SettlementService
	Purchases  *services.PurchaseService
	Admin      *services.AdminService
	Tokens     *auth.TokenIssuer
	Prices     *pricing.Table
}

// Server is the HTTP API server
type Server struct {
	engine *gin.Engine
	deps   Deps
	cfg    config.HTTPConfig
	logger *logrus.Logger
}

// NewServer creates the API server and registers its routes
func NewServer(cfg config.HTTPConfig, deps Deps, logger *logrus.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), metrics.Middleware())

	s := &Server{
		engine: engine,
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
	s.routes()
	return s
}

// Handler returns the underlying HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: constants.DefaultTimeout * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP API listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.engine.Group("/api")
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/packages", s.handlePackages)

	authed := api.Group("", authRequired(s.deps.Tokens))
	authed.GET("/me", s.handleMe)
	authed.POST("/tokens/purchase", s.handlePurchase)
	authed.GET("/transactions", s.handleTransactions)

	authed.POST("/sessions", s.handleStartSharing)
	authed.GET("/sessions", s.handleMySessions)
	authed.GET("/sessions/available", s.handleAvailableSessions)
	authed.POST("/sessions/join", s.handleJoinSession)
	authed.GET("/sessions/:id", s.handleGetSession)
	authed.GET("/sessions/:id/qr", s.handleSessionQR)
	authed.POST("/sessions/:id/usage", newUsageLimiter(s.cfg.UsageRateLimit, s.cfg.UsageBurst, s.logger).Handler(), s.handleReportUsage)
	authed.POST("/sessions/:id/stop", s.handleStopSession)

	admin := authed.Group("/admin", requireAdmin())
	admin.GET("/overview", s.handleAdminOverview)
	admin.GET("/sharers", s.handleTopSharers)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
		s.logger.Errorf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
