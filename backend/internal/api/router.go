// Package api exposes the orchestrator over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agent-neo/backend/internal/domain"
	"agent-neo/backend/internal/graph"
	"agent-neo/backend/internal/status"
	apperrors "agent-neo/backend/pkg/errors"
)

// Service is what the routes call into; agent.Orchestrator implements it.
type Service interface {
	Ask(ctx context.Context, q domain.Question) (*domain.Response, error)
	Rate(ctx context.Context, rating domain.Rating) (graph.WriteResult, error)
	History(ctx context.Context, conversationID string) (*graph.ConversationHistory, error)
	PersistenceStatus(ctx context.Context, messageID string) (status.Status, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router
type Options struct {
	CORSOrigins []string
	Release     bool
	// Health is checked by GET /health; nil reports ok without a check.
	Health Pinger
}

// NewRouter builds the gin engine with every route and middleware registered.
func NewRouter(svc Service, log *zap.Logger, opts Options) *gin.Engine {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors(opts.CORSOrigins))

	h := &handlers{svc: svc, log: log, health: opts.Health}

	router.GET("/", h.root)
	router.GET("/health", h.healthCheck)
	router.POST("/llm", h.ask)
	router.POST("/rating", h.rate)
	router.GET("/graph-llm/:conversation_id", h.history)
	router.GET("/persistence/:message_id", h.persistenceStatus)

	return router
}

type handlers struct {
	svc    Service
	log    *zap.Logger
	health Pinger
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, "Agent Neo backend is live.")
}

func (h *handlers) healthCheck(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.log.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) ask(c *gin.Context) {
	var q domain.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Ask(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "Failed to answer question", err,
			zap.String("conversation_id", q.ConversationID),
			zap.String("llm_type", q.LLMType),
		)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) rate(c *gin.Context) {
	var r domain.Rating
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.Rate(c.Request.Context(), r)
	if err != nil {
		h.fail(c, "Failed to rate message", err, zap.String("message_id", r.MessageID))
		return
	}
	if res.HasWarning(graph.WarningMessageMissing) {
		h.log.Warn("Rated message does not exist", zap.String("message_id", r.MessageID))
	}
	c.Status(http.StatusOK)
}

func (h *handlers) history(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	history, err := h.svc.History(c.Request.Context(), conversationID)
	if err != nil {
		h.fail(c, "Failed to fetch conversation history", err, zap.String("conversation_id", conversationID))
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *handlers) persistenceStatus(c *gin.Context) {
	messageID := c.Param("message_id")

	st, err := h.svc.PersistenceStatus(c.Request.Context(), messageID)
	if err != nil {
		h.fail(c, "Failed to fetch persistence status", err, zap.String("message_id", messageID))
		return
	}
	c.JSON(http.StatusOK, st)
}

// fail maps an error to its HTTP status and logs server-side failures.
func (h *handlers) fail(c *gin.Context, msg string, err error, fields ...zap.Field) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Error(msg, append(fields, zap.Error(err))...)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case apperrors.IsErrorType(err, apperrors.ErrorTypeValidation):
		return http.StatusUnprocessableEntity
	case apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound):
		return http.StatusNotFound
	case apperrors.IsErrorType(err, apperrors.ErrorTypeConnection):
		return http.StatusServiceUnavailable
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// cors echoes allow-listed origins with credentials allowed.
func cors(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && slices.Contains(origins, strings.TrimSuffix(origin, "/")) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
