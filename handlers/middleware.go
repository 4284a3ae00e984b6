package handlers

import (
	"log/slog"
	"strings"
	"time"

	"pollblog-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	callerKey    = "caller"
)

// RequestID propagates an incoming X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// Authenticator resolves a bearer token to a caller.
type Authenticator interface {
	Authenticate(token string) (*service.Caller, error)
}

// Authenticate attaches the caller of a valid bearer token. Requests without a
// token, or with an invalid one, continue anonymously.
func Authenticate(auth Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if ok && token != "" {
			caller, err := auth.Authenticate(token)
			if err != nil {
				logger.Debug("ignoring invalid bearer token", "request_id", c.GetString(requestIDKey))
			} else {
				c.Set(callerKey, caller)
			}
		}
		c.Next()
	}
}

// CallerFrom returns the authenticated caller, or nil when anonymous.
func CallerFrom(c *gin.Context) *service.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(*service.Caller); ok {
			return caller
		}
	}
	return nil
}
