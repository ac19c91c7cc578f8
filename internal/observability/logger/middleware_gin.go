package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/recipecost/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const RequestIDHeader = "X-Request-Id"

// ErrorClassifier maps a handler error to the (type, code) pair sent to the client.
type ErrorClassifier func(err error) (errType, code string)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	// Logger defaults to the zap global.
	Logger *zap.Logger
	Debug  bool
	// QuietRoutes are logged at debug level. Defaults to /health and /metrics.
	QuietRoutes     []string
	ErrorClassifier ErrorClassifier
}

// GinMiddleware assigns a request id and writes one access line per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := make(map[string]struct{})
	routes := cfg.QuietRoutes
	if routes == nil {
		routes = []string{"/health", "/metrics"}
	}
	for _, r := range routes {
		quiet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		started := time.Now()
		requestID := requestIDFor(c)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(started)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}

		level := zapcore.InfoLevel
		if last := c.Errors.Last(); last != nil {
			if cfg.ErrorClassifier != nil {
				errType, code := cfg.ErrorClassifier(last.Err)
				fields = append(fields, zap.String("error_type", errType), zap.String("error_code", code))
			}
			if cfg.Debug || status >= http.StatusInternalServerError {
				fields = append(fields, zap.Error(last.Err))
			}
			level = zapcore.WarnLevel
		}
		switch _, isQuiet := quiet[route]; {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case isQuiet:
			level = zapcore.DebugLevel
		}

		base := cfg.Logger
		if base == nil {
			base = zap.L()
		}
		WithContext(c.Request.Context(), base).Log(level, "http_request", fields...)
	}
}

// requestIDFor reuses the caller's request id when present and echoes it back.
func requestIDFor(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(RequestIDHeader, id)
	return id
}
