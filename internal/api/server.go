// Package api exposes the engine to the operator dashboard over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/session"
	"action-engine/internal/common/logger"
	"action-engine/internal/common/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
)

// Check is a readiness probe for one dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Options struct {
	Sessions        *session.Service
	Dispatcher      dispatch.Dispatcher
	ReadyChecks     []Check
	DefaultPlatform string
	Logger          logger.Logger
}

type Server struct {
	sessions        *session.Service
	dispatcher      dispatch.Dispatcher
	checks          []Check
	defaultPlatform string
	logger          logger.Logger
	engine          *gin.Engine
}

func NewServer(opts Options) *Server {
	s := &Server{
		sessions:        opts.Sessions,
		dispatcher:      opts.Dispatcher,
		checks:          opts.ReadyChecks,
		defaultPlatform: opts.DefaultPlatform,
		logger:          opts.Logger.With(map[string]interface{}{"component": "api"}),
	}
	s.engine = s.newRouter()
	return s
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.observe())

	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/suggestions", s.handleSuggestions)
		v1.POST("/conversations", s.handleCreateConversation)

		conv := v1.Group("/conversations/:id")
		conv.POST("/turns", s.handleTurn)
		conv.POST("/preview", s.handlePreview)
		conv.DELETE("/pending", s.handleDeletePending)
		conv.GET("/audit", s.handleAudit)
	}
	return r
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestID echoes the caller's request id or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// observe records the duration histogram keyed by route template.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		s.logger.WithContext(c.Request.Context()).Debug("request served", map[string]interface{}{
			"requestId":  c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}
