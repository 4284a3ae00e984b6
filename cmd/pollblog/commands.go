package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pollblog-backend/auth"
	"pollblog-backend/cache"
	"pollblog-backend/config"
	"pollblog-backend/database"
	"pollblog-backend/handlers"
	"pollblog-backend/logging"
	"pollblog-backend/repository"
	"pollblog-backend/service"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "pollblog",
		Usage:   "Polls and blog backend",
		Version: handlers.Version,
		Flags:   config.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if _, err := logging.Init(c.String(config.LogLevel.Name)); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "createuser",
				Usage: "Create a user or reset its password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.BoolFlag{Name: "staff", Usage: "Grant back-office access"},
				},
				Action: createUser,
			},
			{
				Name:   "check",
				Usage:  "Verify database and Redis connectivity",
				Action: check,
			},
		},
	}
}

func loadConfig(c *cli.Command) (config.Config, error) {
	cfg := config.FromCommand(c)
	return cfg, cfg.Validate()
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	return database.Open(cfg.DB, cfg.LogLevel == "debug")
}

func migrate(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db, logger); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func createUser(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	accounts := service.NewAccountService(
		repository.NewUserRepository(db),
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		logger,
	)
	user, err := accounts.EnsureUser(ctx, c.String("username"), c.String("password"), c.Bool("staff"))
	if err != nil {
		return err
	}
	fmt.Printf("user %q ready (id %d, staff %t)\n", user.Username, user.ID, user.IsStaff)
	return nil
}

// check exercises every external dependency once and reports all failures.
func check(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	report := func(name string, err error) {
		if err != nil {
			logger.Error("check failed", "check", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		logger.Info("check passed", "check", name)
	}

	db, err := openDatabase(cfg)
	report("database", err)
	if err == nil {
		report("database ping", database.Ping(ctx, db))
		_ = database.Close(db)
	}

	if !cfg.RedisEnabled() {
		logger.Info("redis not configured, skipping redis checks")
		return errors.Join(errs...)
	}
	client, err := cache.Connect(ctx, cfg.Redis, logger)
	report("redis", err)
	if err == nil {
		defer client.Close()
		report("rate limiter", checkRateLimiter(ctx, client))
		report("distributed lock", checkLock(ctx, client))
	}
	return errors.Join(errs...)
}

func checkRateLimiter(ctx context.Context, client *redis.Client) error {
	limiter := cache.NewTokenBucketRateLimiter(client, "check", 1, 1)
	allowed, err := limiter.Allow(ctx, fmt.Sprintf("%d", time.Now().UnixNano()))
	if err != nil {
		return err
	}
	if !allowed {
		return errors.New("fresh key was rejected")
	}
	return nil
}

func checkLock(ctx context.Context, client *redis.Client) error {
	locks := cache.NewDistributedLockService(client)
	return locks.WithLock(ctx, "pollblog:check", time.Second, func() error { return nil })
}
