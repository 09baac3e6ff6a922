// Package httpserver implements the HTTP entrypoint (spec §4.8, C9):
// the agent-card routes, the JSON-RPC endpoint (with its JSON/SSE
// response-mode switch), and request-context extraction, built on
// github.com/gin-gonic/gin.
package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agent-protocol/a2a-server/internal/handler"
	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

// Options configures route mounting and CORS (spec §6, SPEC_FULL.md §4.8).
type Options struct {
	MountPrefix        string
	CORSAllowedOrigins []string // empty disables CORS middleware entirely
}

// Server wires a handler.Handler to a gin.Engine.
type Server struct {
	engine  *gin.Engine
	handler *handler.Handler
	opts    Options
	logger  *slog.Logger
}

// New builds a Server with routes registered.
func New(h *handler.Handler, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, handler: h, opts: opts, logger: logger}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin.Engine, e.g. for http.Server wiring.
func (s *Server) Engine() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	if len(s.opts.CORSAllowedOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}

	prefix := strings.TrimSuffix(s.opts.MountPrefix, "/")
	group := s.engine.Group(prefix)

	group.GET("/healthz", s.handleHealthz)
	group.GET("/.well-known/a2a/agent-card", s.handleGetCard)
	group.GET("/a2a/agent-card/extended", s.handleGetExtendedCard)
	group.POST("/a2a/rpc", s.handleRPC)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetCard(c *gin.Context) {
	c.JSON(http.StatusOK, s.handler.PublicCard())
}

func (s *Server) handleGetExtendedCard(c *gin.Context) {
	principal := principalFrom(c)
	card, err := s.handler.ExtendedCard(principal)
	if err != nil {
		switch err.Code {
		case a2a.CodeCapabilityUnsupported:
			c.Status(http.StatusNotFound)
		case a2a.CodeAuthRequired, a2a.CodeAuthFailed:
			c.Status(http.StatusUnauthorized)
		default:
			c.JSON(http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, card)
}

// extractMeta builds a handler.RequestMeta from the incoming request:
// remote address, user agent, all headers, and any authenticated
// principal a prior middleware attached to the gin context (spec §4.8
// "Context extraction").
func extractMeta(c *gin.Context) handler.RequestMeta {
	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return handler.RequestMeta{
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Headers:    headers,
		Principal:  principalFrom(c),
	}
}

func principalFrom(c *gin.Context) string {
	if v, ok := c.Get("principal"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
