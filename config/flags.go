package config

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
)

var defaults = Default()

var Addr = &cli.StringFlag{
	Name:    "addr",
	Aliases: []string{"a"},
	Usage:   "The address the HTTP server listens on",
	Value:   defaults.Addr,
	Sources: cli.EnvVars("SERVER_ADDR"),
}

var Environment = &cli.StringFlag{
	Name:    "environment",
	Aliases: []string{"e"},
	Usage:   "Deployment environment; development seeds sample data",
	Value:   defaults.Environment,
	Sources: cli.EnvVars("ENVIRONMENT"),
}

var LogLevel = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Value:   defaults.LogLevel,
	Sources: cli.EnvVars("LOG_LEVEL"),
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
		}
		return nil
	},
}

var DBDriver = &cli.StringFlag{
	Name:    "db-driver",
	Usage:   "Database driver: sqlite or mysql",
	Value:   defaults.DB.Driver,
	Sources: cli.EnvVars("DB_DRIVER"),
	Validator: func(value string) error {
		if !slices.Contains(validDrivers, value) {
			return fmt.Errorf("invalid db driver: %s, allowed values are: %s", value, validDrivers)
		}
		return nil
	},
}

var DatabaseURL = &cli.StringFlag{
	Name:    "database-url",
	Usage:   "Full DSN; overrides the DB_* parts",
	Sources: cli.EnvVars("DATABASE_URL"),
}

var DBUser = &cli.StringFlag{
	Name:    "db-user",
	Value:   defaults.DB.User,
	Sources: cli.EnvVars("DB_USER"),
}

var DBPassword = &cli.StringFlag{
	Name:    "db-password",
	Sources: cli.EnvVars("DB_PASSWORD"),
}

var DBHost = &cli.StringFlag{
	Name:    "db-host",
	Value:   defaults.DB.Host,
	Sources: cli.EnvVars("DB_HOST"),
}

var DBPort = &cli.StringFlag{
	Name:    "db-port",
	Value:   defaults.DB.Port,
	Sources: cli.EnvVars("DB_PORT"),
}

var DBName = &cli.StringFlag{
	Name:    "db-name",
	Value:   defaults.DB.Name,
	Sources: cli.EnvVars("DB_NAME"),
}

var RedisAddr = &cli.StringFlag{
	Name:    "redis-addr",
	Usage:   "Redis address; empty disables caching, shared rate limits and cross-instance events",
	Sources: cli.EnvVars("REDIS_ADDR"),
}

var RedisPassword = &cli.StringFlag{
	Name:    "redis-password",
	Sources: cli.EnvVars("REDIS_PASSWORD"),
}

var RedisDB = &cli.IntFlag{
	Name:    "redis-db",
	Sources: cli.EnvVars("REDIS_DB"),
}

var JWTSecret = &cli.StringFlag{
	Name:    "jwt-secret",
	Usage:   "HMAC secret used to sign login tokens",
	Value:   defaults.JWTSecret,
	Sources: cli.EnvVars("JWT_SECRET"),
}

var TokenTTL = &cli.DurationFlag{
	Name:    "token-ttl",
	Value:   defaults.TokenTTL,
	Sources: cli.EnvVars("TOKEN_TTL"),
}

var RateLimitEnabled = &cli.BoolFlag{
	Name:    "rate-limit",
	Usage:   "Throttle vote and comment submission per client",
	Sources: cli.EnvVars("ENABLE_RATE_LIMIT"),
}

var VoteRate = &cli.IntFlag{
	Name:    "vote-rate",
	Usage:   "Votes per second allowed per client",
	Value:   5,
	Sources: cli.EnvVars("VOTE_RATE"),
}

var VoteBurst = &cli.IntFlag{
	Name:    "vote-burst",
	Value:   10,
	Sources: cli.EnvVars("VOTE_BURST"),
}

var CommentWindow = &cli.DurationFlag{
	Name:    "comment-window",
	Value:   defaults.RateLimit.CommentWindow,
	Sources: cli.EnvVars("COMMENT_WINDOW"),
}

var CommentLimit = &cli.IntFlag{
	Name:    "comment-limit",
	Usage:   "Comments allowed per client within the comment window",
	Value:   5,
	Sources: cli.EnvVars("COMMENT_LIMIT"),
}

var AdminUsername = &cli.StringFlag{
	Name:    "admin-username",
	Usage:   "Staff account ensured at startup when a password is also given",
	Sources: cli.EnvVars("ADMIN_USERNAME"),
}

var AdminPassword = &cli.StringFlag{
	Name:    "admin-password",
	Sources: cli.EnvVars("ADMIN_PASSWORD"),
}

// Flags is the full flag set shared by every subcommand.
func Flags() []cli.Flag {
	return []cli.Flag{
		Addr, Environment, LogLevel,
		DBDriver, DatabaseURL, DBUser, DBPassword, DBHost, DBPort, DBName,
		RedisAddr, RedisPassword, RedisDB,
		JWTSecret, TokenTTL,
		RateLimitEnabled, VoteRate, VoteBurst, CommentWindow, CommentLimit,
		AdminUsername, AdminPassword,
	}
}
