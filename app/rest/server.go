// Package rest serves story pages, embeddable fragments and the newsletters API.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Semior001/alumni/app/newsletter"
	"github.com/Semior001/alumni/app/stories"
	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// NewsletterLister lists newsletter issues.
type NewsletterLister interface {
	List(ctx context.Context) ([]newsletter.Newsletter, error)
}

// Server provides routes and handlers for the website.
type Server struct {
	Logger   *slog.Logger
	Addr     string
	Pipeline *stories.Pipeline
	Renderer *stories.Renderer
	// Newsletters is optional, the endpoint is not registered without it.
	Newsletters    NewsletterLister
	HandlerTimeout time.Duration
}

// Run starts the server and shuts it down when the context is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.Logger.Handler(), slog.LevelWarn),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Warn("failed to shutdown http server", slog.Any("err", err))
		}
	}()

	s.Logger.Info("starting http server", slog.String("addr", s.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Routes returns the router with all handlers.
func (s *Server) Routes() *gin.Engine {
	router := gin.New()

	router.Use(
		RequestID(),
		Recover(s.Logger),
		Logger(s.Logger),
		Timeout(s.HandlerTimeout),
	)

	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/stories/*path", s.storyPage)
	router.GET("/fragments/stories", s.storyFragment)

	if s.Newsletters != nil {
		api := router.Group("/api", CORS())
		api.Any("/newsletters", s.listNewsletters)
	}

	return router
}

// storyPage renders the whole page for the requested story path.
func (s *Server) storyPage(c *gin.Context) {
	region := stories.NewRegion(s.Renderer)
	s.Pipeline.Mount(c.Request.Context(), stories.Navigation{
		Path:  c.Request.URL.Path,
		Query: c.Request.URL.Query(),
	}, region)

	state, content, meta := region.Snapshot()

	page, err := s.Renderer.Page(state, content, meta)
	if err != nil {
		s.Logger.ErrorContext(c.Request.Context(), "failed to render page", slog.Any("err", err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// storyFragment renders only the region, for pages of the static site.
// The page forwards its location path, the "slug" query parameter and
// its own key variable as "page_slug".
func (s *Server) storyFragment(c *gin.Context) {
	region := stories.NewRegion(s.Renderer)
	s.Pipeline.Mount(c.Request.Context(), stories.Navigation{
		Path:     c.Query("path"),
		Query:    url.Values{"slug": {c.Query("slug")}},
		Override: c.Query("page_slug"),
	}, region)

	state, content, _ := region.Snapshot()

	c.Header("X-Stories-State", state.String())
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(content))
}

// listNewsletters responds with all newsletter issues. Preflight requests
// are answered by the CORS middleware, the rest reach the handler.
func (s *Server) listNewsletters(c *gin.Context) {
	c.Header("Content-Type", "application/json")

	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
		return
	case http.MethodGet:
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	list, err := s.Newsletters.List(c.Request.Context())
	if err != nil {
		s.Logger.ErrorContext(c.Request.Context(), "failed to list newsletters", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch newsletters",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, list)
}
