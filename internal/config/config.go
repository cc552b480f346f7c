// Package config loads server settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

const (
	devSecret = "dev_secret_change_me"
	devSalt   = "local_dev_salt"
)

// Config is every knob the server reads.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"./data/arcade.db"`
	// Store picks where sessions live; users and daily results are always SQLite.
	Store string `env:"STORE" envDefault:"sqlite"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"arcade_token"`
	AnonCookieName string `env:"ANON_COOKIE_NAME" envDefault:"arcade_anon"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	Production     bool   `env:"PRODUCTION" envDefault:"false"`

	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	GamesFile string `env:"GAMES_FILE"`
	WordsFile string `env:"WORDS_FILE"`

	SaveRetries    int           `env:"SAVE_RETRIES" envDefault:"5"`
	SaveRetryBase  time.Duration `env:"SAVE_RETRY_BASE" envDefault:"10ms"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// Load reads .env files (missing ones are fine) and then the environment.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	return c, c.Validate()
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is empty"))
	}
	if c.Store != StoreMemory && c.Store != StoreSQLite {
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Store))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is empty"))
	}
	if c.JWTExpiresDays <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_DAYS must be positive"))
	}
	if c.Production && (c.JWTSecret == "" || c.JWTSecret == devSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Production && (c.DailySalt == "" || c.DailySalt == devSalt) {
		errs = append(errs, errors.New("DAILY_SALT must be set in production"))
	}
	if c.SaveRetries < 0 {
		errs = append(errs, errors.New("SAVE_RETRIES must be >= 0"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c Config) Addr() string { return ":" + c.Port }

// TokenTTL is how long issued JWTs stay valid.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}
