// Package server exposes sessions over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/KaramelBytes/flowviz-cli/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SessionHeader carries the session id returned by /api/login.
const SessionHeader = "X-Session-ID"

// DefaultMaxUploadBytes caps the body of upload requests.
const DefaultMaxUploadBytes = 64 << 20

// maxMultipartMemory is how much of a multipart form is buffered in memory;
// the rest spills to temporary files.
const maxMultipartMemory = 32 << 20

// APIHandler handles all API requests
type APIHandler struct {
	sessions  *session.Manager
	readOpt   dataset.Options
	plotlyURL string
	maxUpload int64
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(sessions *session.Manager, readOpt dataset.Options, plotlyURL string) *APIHandler {
	return &APIHandler{sessions: sessions, readOpt: readOpt, plotlyURL: plotlyURL, maxUpload: DefaultMaxUploadBytes}
}

// SetMaxUpload changes the upload body cap; n <= 0 restores the default.
func (h *APIHandler) SetMaxUpload(n int64) {
	if n <= 0 {
		n = DefaultMaxUploadBytes
	}
	h.maxUpload = n
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/login", h.Login)

		authed := api.Group("", h.requireSession)
		authed.POST("/logout", h.Logout)
		authed.POST("/datasets", h.limitBody, h.UploadDataset)
		authed.GET("/classification", h.GetClassification)
		authed.GET("/recommendations", h.GetRecommendations)
		authed.GET("/charts/:index", h.GetChart)
		authed.POST("/charts/custom", h.CustomChart)
		authed.POST("/compare", h.limitBody, h.Compare)
		authed.GET("/compare/chart/:column", h.CompareChart)
		authed.GET("/export", h.Export)
	}
}

// NewRouter builds a gin engine with recovery, request logging and the API
// routes.
func NewRouter(h *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.MaxMultipartMemory = maxMultipartMemory
	h.SetupRoutes(router)
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return router
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
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
	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server exited properly")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("session", c.GetHeader(SessionHeader)).
			Msg("request")
	}
}

func (h *APIHandler) requireSession(c *gin.Context) {
	s, err := h.sessions.Get(c.GetHeader(SessionHeader))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	c.Set("session", s)
	c.Next()
}

func (h *APIHandler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet("session").(*session.Session)
}
