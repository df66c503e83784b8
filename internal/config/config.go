package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	HTTPAddr          string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret         string        `env:"JWT_SECRET,required"`
	RedisAddr         string        `env:"REDIS_ADDR,required"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL          time.Duration `env:"REDIS_TTL" envDefault:"24h"`
	RateCacheTTL      time.Duration `env:"RATE_CACHE_TTL" envDefault:"5m"`
	SpotFeedURL       string        `env:"SPOT_FEED_URL"`
	SpotFeedAPIKey    string        `env:"SPOT_FEED_API_KEY"`
	DBHost            string        `env:"DB_HOST,required"`
	DBPort            int           `env:"DB_PORT,required"`
	DBUser            string        `env:"DB_USER,required"`
	DBPassword        string        `env:"DB_PASSWORD,required"`
	DBName            string        `env:"DB_NAME,required"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
	QuoteRateLimit    int64         `env:"QUOTE_RATE_LIMIT" envDefault:"60"`
	QuoteRateWindow   time.Duration `env:"QUOTE_RATE_WINDOW" envDefault:"1m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	return &cfg, nil
}
