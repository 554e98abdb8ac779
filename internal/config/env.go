// Package config loads the fetchcache command's settings from the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

type Config struct {
	BaseURL       string        `env:"FETCHCACHE_BASE_URL"`
	RedisAddr     string        `env:"FETCHCACHE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB       int           `env:"FETCHCACHE_REDIS_DB" envDefault:"0"`
	Namespace     string        `env:"FETCHCACHE_NAMESPACE"`
	Timeout       time.Duration `env:"FETCHCACHE_TIMEOUT" envDefault:"30s"`
	Local         string        `env:"FETCHCACHE_LOCAL" envDefault:"memory"`
	Codec         string        `env:"FETCHCACHE_CODEC" envDefault:"json"`
	Logger        string        `env:"FETCHCACHE_LOGGER" envDefault:"slog"`
	Debug         bool          `env:"FETCHCACHE_DEBUG" envDefault:"false"`
	OTelEndpoint  string        `env:"FETCHCACHE_OTEL_ENDPOINT"`
	// MaxEntryBytes caps entries decoded from Redis; 0 disables the check.
	MaxEntryBytes int           `env:"FETCHCACHE_MAX_ENTRY_BYTES" envDefault:"0"`
}

var (
	locals  = []string{"memory", "ristretto", "bigcache"}
	codecs  = []string{"json", "cbor", "msgpack", "proto"}
	loggers = []string{"slog", "zap", "logrus", "zerolog"}
)

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var c Config
	if err := ParseEnv(&c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("FETCHCACHE_TIMEOUT must be positive, got %s", c.Timeout))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("FETCHCACHE_REDIS_DB must be >= 0, got %d", c.RedisDB))
	}
	if c.MaxEntryBytes < 0 {
		errs = append(errs, fmt.Errorf("FETCHCACHE_MAX_ENTRY_BYTES must be >= 0, got %d", c.MaxEntryBytes))
	}
	errs = append(errs,
		oneOf("FETCHCACHE_LOCAL", c.Local, locals),
		oneOf("FETCHCACHE_CODEC", c.Codec, codecs),
		oneOf("FETCHCACHE_LOGGER", c.Logger, loggers),
	)
	return errors.Join(errs...)
}

func oneOf(name, v string, allowed []string) error {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", name, v, strings.Join(allowed, ", "))
}
