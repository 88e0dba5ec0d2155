package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arc-onboarding/internal/logger"
)

// UpdateHandler accepts webhook updates. It must not block on processing.
type UpdateHandler interface {
	HandleUpdate(update tgbotapi.Update)
}

type Options struct {
	// Secret is the last path segment Telegram posts to, normally the bot token.
	Secret string
	// Ping reports whether storage is reachable. Nil skips the check.
	Ping  func(ctx context.Context) error
	Debug bool
}

// NewRouter wires the webhook, liveness, health and metrics endpoints.
func NewRouter(updates UpdateHandler, opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestID(), requestLogger(), gin.Recovery())

	h := &handlers{updates: updates, opts: opts}
	router.POST("/webhook/:secret", h.webhook)
	router.GET("/", h.alive)
	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// New returns an HTTP server for handler with conservative timeouts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

type handlers struct {
	updates UpdateHandler
	opts    Options
}

// webhook acknowledges every well-addressed request so Telegram does not redeliver;
// processing happens on the applicant queues.
func (h *handlers) webhook(c *gin.Context) {
	secret := c.Param("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.opts.Secret)) != 1 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		logger.Warn().Err(err).Msg("malformed webhook update")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	h.updates.HandleUpdate(update)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) alive(c *gin.Context) {
	c.String(http.StatusOK, "ARC onboarding bot is running.")
}

func (h *handlers) health(c *gin.Context) {
	if h.opts.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Ping(ctx); err != nil {
			logger.Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
