package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Semior001/alumni/pkg/logx"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID is a middleware that adds request id to context.
// The id from the incoming header is reused, if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Request = c.Request.WithContext(logx.ContextWithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Logger is a middleware that logs all requests.
func Logger(lg *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		args := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		}

		if lg.Handler().Enabled(ctx, slog.LevelDebug) {
			lg.DebugContext(ctx, "request processed", append(args,
				slog.String("query", c.Request.URL.RawQuery),
				slog.String("remote", c.ClientIP()),
			)...)
			return
		}

		lg.InfoContext(ctx, "request processed", args...)
	}
}

// Recover is a middleware that recovers from panics.
func Recover(lg *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				lg.ErrorContext(c.Request.Context(), "panic recovered", slog.Any("panic", r))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()
	}
}

// Timeout sets the deadline for the request context.
func Timeout(dur time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dur <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dur)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CORS allows the public API to be read from any origin.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:              []string{"Content-Type"},
		OptionsResponseStatusCode: http.StatusOK,
	})
}
