package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"pollblog-backend/admin"
	"pollblog-backend/api"
	"pollblog-backend/auth"
	"pollblog-backend/cache"
	"pollblog-backend/config"
	"pollblog-backend/database"
	"pollblog-backend/handlers"
	"pollblog-backend/metrics"
	"pollblog-backend/mq"
	"pollblog-backend/repository"
	"pollblog-backend/routes"
	"pollblog-backend/service"
	"pollblog-backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout   = 5 * time.Second
	collectorInterval = 30 * time.Second
)

func serve(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db, logger); err != nil {
		return err
	}
	if cfg.IsDevelopment() {
		if err := database.Seed(ctx, db, time.Now(), logger); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = cache.Connect(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("continuing without redis", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	bus := mq.NewAdapter(redisClient, logger)
	defer bus.Close()

	var (
		posts       repository.PostRepository = repository.NewPostRepository(db)
		cachedPosts *repository.CachedPostRepository
		purgeStore  cache.RedisClient
		redisPing   handlers.Pinger
	)
	if redisClient != nil {
		hot := cache.NewHotCache(redisClient, cache.NewDistributedLockService(redisClient), logger)
		cachedPosts = repository.NewCachedPostRepository(posts, hot, logger)
		posts = cachedPosts
		purgeStore = redisClient
		redisPing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	polls := service.NewPollService(repository.NewQuestionRepository(db), bus, logger)
	blog := service.NewBlogService(posts, bus, logger)
	accounts := service.NewAccountService(
		repository.NewUserRepository(db),
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		logger,
	)
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if _, err := accounts.EnsureUser(ctx, cfg.AdminUsername, cfg.AdminPassword, true); err != nil {
			return fmt.Errorf("ensure admin user: %w", err)
		}
	}

	site, err := admin.DefaultSite(db, logger)
	if err != nil {
		return err
	}
	if cachedPosts != nil {
		site.OnWrite(cachedPosts.ForgetObject)
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	live := websocket.NewHandler(hub, polls, logger)
	if err := bus.Subscribe(ctx, live.OnEvent); err != nil {
		return fmt.Errorf("subscribe live results: %w", err)
	}

	collector := &metrics.Collector{DB: db, Interval: collectorInterval, Logger: logger}
	go collector.Run(ctx)

	voteLimiter, commentLimiter := rateLimiters(cfg.RateLimit, redisClient)

	router := routes.SetupRouter(routes.Dependencies{
		Logger:         logger,
		Authenticator:  accounts,
		Polls:          api.NewPollController(polls, logger),
		Blog:           api.NewBlogController(blog, logger),
		Auth:           api.NewAuthController(accounts, logger),
		Admin:          api.NewAdminController(site, purgeStore, logger),
		Live:           live,
		Health:         handlers.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, db) }, redisPing),
		VoteLimiter:    voteLimiter,
		CommentLimiter: commentLimiter,
	})

	srv := routes.NewServer(cfg.Addr, router, logger)
	select {
	case err := <-srv.Start():
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := srv.Stop(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// rateLimiters prefers Redis so limits hold across instances.
func rateLimiters(cfg config.RateLimitConfig, client *redis.Client) (votes, comments cache.RateLimiter) {
	if !cfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return handlers.NewLocalRateLimiter(rate.Limit(cfg.VoteRate), cfg.VoteBurst),
			handlers.NewLocalWindowLimiter(cfg.CommentWindow, cfg.CommentLimit)
	}
	return cache.NewTokenBucketRateLimiter(client, "votes", cfg.VoteRate, cfg.VoteBurst),
		cache.NewSlidingWindowRateLimiter(client, "comments", cfg.CommentWindow, cfg.CommentLimit)
}
