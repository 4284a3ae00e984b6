package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pollblog-backend/api"
	"pollblog-backend/cache"
	"pollblog-backend/handlers"
	"pollblog-backend/metrics"
	"pollblog-backend/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the controllers and middleware inputs of the router.
type Dependencies struct {
	Logger        *slog.Logger
	Authenticator handlers.Authenticator

	Polls  *api.PollController
	Blog   *api.BlogController
	Auth   *api.AuthController
	Admin  *api.AdminController
	Live   *websocket.Handler
	Health *handlers.HealthHandler

	// Nil limiters disable throttling.
	VoteLimiter    cache.RateLimiter
	CommentLimiter cache.RateLimiter
}

// SetupRouter wires middleware and every endpoint.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.RequestID())
	router.Use(handlers.AccessLog(deps.Logger))
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Location", handlers.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(handlers.Authenticate(deps.Authenticator, deps.Logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	deps.Live.RegisterRoutes(router)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", deps.Health.HealthCheck)
		apiGroup.GET("/status", deps.Health.SystemStatus)

		deps.Polls.RegisterRoutes(apiGroup, limit(deps.VoteLimiter, "vote", deps.Logger)...)
		deps.Blog.RegisterRoutes(apiGroup, limit(deps.CommentLimiter, "comment", deps.Logger)...)
		deps.Auth.RegisterRoutes(apiGroup)
		deps.Admin.RegisterRoutes(apiGroup)
	}

	return router
}

func limit(limiter cache.RateLimiter, scope string, logger *slog.Logger) []gin.HandlerFunc {
	if limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{handlers.RateLimitMiddleware(limiter, scope, logger)}
}

// Server wraps the HTTP server.
type Server struct {
	*http.Server
	logger *slog.Logger
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in a goroutine. The returned channel receives the error that
// stopped the server, if any, and is then closed.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// Stop drains in-flight requests for at most timeout.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}
