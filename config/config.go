package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	developmentSecret = "development-only-secret"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validDrivers   = []string{DriverSQLite, DriverMySQL}
)

// Config holds everything the server needs at startup.
type Config struct {
	Addr        string
	Environment string
	LogLevel    string

	DB    DBConfig
	Redis RedisConfig

	JWTSecret string
	TokenTTL  time.Duration

	RateLimit RateLimitConfig

	AdminUsername string
	AdminPassword string
}

// DBConfig selects the gorm driver and its DSN.
type DBConfig struct {
	Driver   string
	URL      string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// RedisConfig is optional; an empty Addr disables every Redis-backed feature.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig covers vote and comment submission.
type RateLimitConfig struct {
	Enabled       bool
	VoteRate      int
	VoteBurst     int
	CommentWindow time.Duration
	CommentLimit  int
}

// Default is the development configuration, also used by tests.
func Default() Config {
	return Config{
		Addr:        ":8090",
		Environment: EnvDevelopment,
		LogLevel:    "info",
		DB: DBConfig{
			Driver: DriverSQLite,
			User:   "pollblog",
			Host:   "localhost",
			Port:   "3306",
			Name:   "pollblog",
		},
		JWTSecret: developmentSecret,
		TokenTTL:  24 * time.Hour,
		RateLimit: RateLimitConfig{
			VoteRate:      5,
			VoteBurst:     10,
			CommentWindow: time.Minute,
			CommentLimit:  5,
		},
	}
}

// IsDevelopment reports whether sample data and relaxed secrets are allowed.
func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// RedisEnabled reports whether a Redis address was configured.
func (c Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// DSN builds the driver specific connection string. An explicit URL wins.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Driver == DriverSQLite {
		return "pollblog.db"
	}
	// clientFoundRows makes an UPDATE that changes nothing still count its row
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Validate checks values the flag parser cannot.
func (c Config) Validate() error {
	if !slices.Contains(validDrivers, c.DB.Driver) {
		return fmt.Errorf("%w: unknown db driver %q", ErrInvalidConfig, c.DB.Driver)
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt secret is required", ErrInvalidConfig)
	}
	if !c.IsDevelopment() && c.JWTSecret == developmentSecret {
		return fmt.Errorf("%w: jwt secret must be set outside development", ErrInvalidConfig)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalidConfig)
	}
	rl := c.RateLimit
	if rl.Enabled && (rl.VoteRate <= 0 || rl.VoteBurst <= 0 || rl.CommentLimit <= 0 || rl.CommentWindow <= 0) {
		return fmt.Errorf("%w: rate limits must be positive", ErrInvalidConfig)
	}
	return nil
}

// FromCommand reads the parsed flags of cmd into a Config.
func FromCommand(cmd *cli.Command) Config {
	return Config{
		Addr:        cmd.String(Addr.Name),
		Environment: cmd.String(Environment.Name),
		LogLevel:    cmd.String(LogLevel.Name),
		DB: DBConfig{
			Driver:   cmd.String(DBDriver.Name),
			URL:      cmd.String(DatabaseURL.Name),
			User:     cmd.String(DBUser.Name),
			Password: cmd.String(DBPassword.Name),
			Host:     cmd.String(DBHost.Name),
			Port:     cmd.String(DBPort.Name),
			Name:     cmd.String(DBName.Name),
		},
		Redis: RedisConfig{
			Addr:     cmd.String(RedisAddr.Name),
			Password: cmd.String(RedisPassword.Name),
			DB:       int(cmd.Int(RedisDB.Name)),
		},
		JWTSecret: cmd.String(JWTSecret.Name),
		TokenTTL:  cmd.Duration(TokenTTL.Name),
		RateLimit: RateLimitConfig{
			Enabled:       cmd.Bool(RateLimitEnabled.Name),
			VoteRate:      int(cmd.Int(VoteRate.Name)),
			VoteBurst:     int(cmd.Int(VoteBurst.Name)),
			CommentWindow: cmd.Duration(CommentWindow.Name),
			CommentLimit:  int(cmd.Int(CommentLimit.Name)),
		},
		AdminUsername: cmd.String(AdminUsername.Name),
		AdminPassword: cmd.String(AdminPassword.Name),
	}
}
