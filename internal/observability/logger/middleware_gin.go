package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/renatoambrosi/backmercadopro/internal/observability/context"
	"go.uber.org/zap"
)

// MiddlewareConfig tunes the request logging middleware.
type MiddlewareConfig struct {
	// SkipPaths are matched exactly and logged at debug level only.
	SkipPaths []string
}

// GinMiddleware assigns a request id, stores it on the request context, and
// logs one line per completed request with masked headers.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-Id", requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithClientIP(ctx, ClientIP(c))
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		log := FromContext(c.Request.Context()).With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", obscontext.ClientIPFromContext(c.Request.Context())),
		)
		if _, ok := skip[c.Request.URL.Path]; ok {
			log.Debug("request")
			return
		}
		log.Info("request", zap.Any("headers", MaskHeaders(c.Request.Header)))
	}
}

// ClientIP resolves the caller address, honoring the first X-Forwarded-For
// hop and stripping IPv4-mapped prefixes.
func ClientIP(c *gin.Context) string {
	forwarded := c.GetHeader("X-Forwarded-For")
	ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
	if ip == "" {
		ip = c.ClientIP()
	}
	return strings.TrimPrefix(ip, "::ffff:")
}
