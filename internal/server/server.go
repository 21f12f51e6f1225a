package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/emrgen/pidkeeper/internal/batch"
	"github.com/emrgen/pidkeeper/internal/cache"
	"github.com/emrgen/pidkeeper/internal/config"
	"github.com/emrgen/pidkeeper/internal/service"
	"github.com/emrgen/pidkeeper/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the registration engine over HTTP.
type Server struct {
	cfg   *config.Config
	svc   *service.RegistrationService
	store store.Store
	cache cache.DocumentCache // nil disables the read cache
}

func New(cfg *config.Config, svc *service.RegistrationService, s store.Store, c cache.DocumentCache) *Server {
	return &Server{
		cfg:   cfg,
		svc:   svc,
		store: s,
		cache: c,
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/registrations", s.register)
	v1.GET("/pids/:v3", s.getByV3)

	return r
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:    ":" + s.cfg.HTTPPort,
		Handler: cors.Default().Handler(s.router()),
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on :%s", s.cfg.HTTPPort)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logrus.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) register(c *gin.Context) {
	var row batch.Row
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.svc.Register(c.Request.Context(), row.Raw())

	if res.Created != nil && s.cache != nil {
		if err := s.cache.SetDocument(c.Request.Context(), res.Created); err != nil {
			logrus.Warnf("caching created document: %v", err)
		}
	}

	c.JSON(statusFor(res), res)
}

// statusFor keeps the result-object contract (the body always carries the
// full Result) while still giving HTTP clients a meaningful status code.
func statusFor(res service.Result) int {
	switch {
	case res.Created != nil:
		return http.StatusCreated
	case res.Registered != nil:
		return http.StatusOK
	case res.Exception == nil:
		return http.StatusOK
	}

	switch res.Exception.Type {
	case "missing_required_field":
		return http.StatusBadRequest
	case "already_registered":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) getByV3(c *gin.Context) {
	v3 := c.Param("v3")

	if s.cache != nil {
		if doc, err := s.cache.GetDocument(c.Request.Context(), v3); err == nil && doc != nil {
			c.JSON(http.StatusOK, doc)
			return
		}
	}

	doc, err := s.store.GetDocumentByV3(c.Request.Context(), v3)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown v3"})
		return
	}

	if s.cache != nil {
		if err := s.cache.SetDocument(c.Request.Context(), doc); err != nil {
			logrus.Warnf("caching document: %v", err)
		}
	}
	c.JSON(http.StatusOK, doc)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
