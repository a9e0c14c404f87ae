package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pborman/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/hexvault/warden/internal/config"
	"github.com/hexvault/warden/internal/observability"
)

// Handler is a per-platform event processor.
type Handler interface {
	CanHandle(p Platform) bool
	Handle(ctx context.Context, body *Body) (*Result, error)
}

// Server is the ingestion endpoint for platform webhooks. It runs as a
// lifecycle component next to the sweep.
type Server struct {
	cfg      config.Webhook
	api      *ModerationAPI
	handlers []Handler

	srv *http.Server

	runMutex sync.Mutex
	started  bool
	group    *errgroup.Group
}

// NewServer builds the HTTP surface: webhook ingestion, the moderation API
// (when api is non-nil) and the health/metrics endpoints.
func NewServer(cfg config.Webhook, api *ModerationAPI, handlers ...Handler) *Server {
	s := &Server{cfg: cfg, api: api, handlers: handlers}
	s.srv = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.router(),
	}
	return s
}

func (s *Server) getLogEntry() *log.Entry {
	return log.WithField("context", "webhook_server")
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/v1/webhook", s.authorized, s.handleDelivery)
	if s.api != nil {
		s.api.RegisterRoutes(engine.Group("/v1/moderation", s.authorized))
	}
	return engine
}

// authorized guards the delivery endpoint with a constant-time bearer token
// comparison.
func (s *Server) authorized(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		s.getLogEntry().Warn("unauthorized webhook request")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
		s.getLogEntry().Warn("unauthorized webhook request")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) handleDelivery(c *gin.Context) {
	ctx, span := otel.Tracer("webhook").Start(c.Request.Context(), "handle-delivery")
	defer span.End()

	deliveryID := uuid.NewRandom().String()
	entry := s.getLogEntry().WithField("delivery_id", deliveryID)

	body := &Body{}
	if err := c.ShouldBindJSON(body); err != nil {
		entry.WithError(err).Warn("malformed webhook body")
		observability.RecordWebhookEvent("unknown", "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body", "delivery_id": deliveryID})
		return
	}
	entry = entry.WithFields(log.Fields{
		"platform": body.Platform,
		"event":    body.Event,
	})

	handler := s.handlerFor(body.Platform)
	if handler == nil {
		entry.Warn("platform not implemented")
		observability.RecordWebhookEvent(string(body.Event), "not_implemented")
		c.JSON(http.StatusNotImplemented, gin.H{"error": "platform not implemented", "delivery_id": deliveryID})
		return
	}

	result, err := handler.Handle(ctx, body)
	if err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			entry.WithError(err).Warn("unknown event")
			observability.RecordWebhookEvent(string(body.Event), "unknown_event")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "delivery_id": deliveryID})
			return
		}
		entry.WithError(err).Error("webhook handling failed")
		observability.RecordWebhookEvent(string(body.Event), "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "delivery_id": deliveryID})
		return
	}

	entry.WithField("action", result.Action).Info("webhook handled")
	observability.RecordWebhookEvent(string(body.Event), "ok")
	c.JSON(http.StatusOK, gin.H{"success": result.Success, "action": result.Action, "delivery_id": deliveryID})
}

func (s *Server) handlerFor(p Platform) Handler {
	for _, handler := range s.handlers {
		if handler.CanHandle(p) {
			return handler
		}
	}
	return nil
}

func (s *Server) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return nil
	}

	s.group, _ = errgroup.WithContext(ctx)
	s.group.Go(func() error {
		s.getLogEntry().WithField("addr", s.cfg.ListenAddr).Info("webhook server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.started = true
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	if !s.started {
		s.runMutex.Unlock()
		return nil
	}
	s.started = false
	group := s.group
	s.runMutex.Unlock()

	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return group.Wait()
}
