// Package server exposes the REST bridge between the chat client and the
// agent. Every call is one conversation turn; callers branch on the shape of
// the JSON body ({"response": ...} or {"error": ...}).
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/bus"
	"github.com/Aliserag/flow-agentkit-starter/internal/config"
)

// Responder runs one conversation turn. The agent service implements it.
type Responder interface {
	Respond(ctx context.Context, userMessage string) (string, error)
}

// agentRequest is the POST /api/agent body.
type agentRequest struct {
	UserMessage string `json:"userMessage"`
}

// Server is the HTTP bridge.
type Server struct {
	engine    *gin.Engine
	responder Responder
	gateway   *eventGateway
	logger    *logrus.Logger
	httpSrv   *http.Server
}

// New builds the gin engine and registers routes.
func New(cfg config.HTTPConfig, responder Responder, eventBus *bus.EventBus, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine:    engine,
		responder: responder,
		logger:    logger,
	}

	if eventBus != nil {
		s.gateway = newEventGateway(eventBus, logger)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.POST("/api/agent", s.handleAgent)

	if s.gateway != nil {
		s.engine.GET("/api/events", s.gateway.handleWebSocket)
	}
}

// MountMetrics registers the Prometheus exposition endpoint. Must be called
// before Run.
func (s *Server) MountMetrics(handler http.Handler) {
	s.engine.GET("/metrics", gin.WrapH(handler))
}

// handleAgent is the request bridge: reject blank input before touching the
// agent, and map every internal failure to a structured error payload so the
// caller always receives well-formed JSON.
func (s *Server) handleAgent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if strings.TrimSpace(req.UserMessage) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userMessage is required"})
		return
	}

	response, err := s.responder.Respond(c.Request.Context(), req.UserMessage)
	if err != nil {
		s.logger.Errorf("Agent request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": response})
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP server listening on :%d", port)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.httpSrv.Shutdown(shutdownCtx)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
