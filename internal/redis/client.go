package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Baalavignesh/DiggerMan/internal/config"
)

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// Config holds Redis configuration
type Config struct {
	Host        string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port        string        `env:"REDIS_PORT" envDefault:"6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"10s"`
}

// LoadConfigFromEnv loads Redis configuration from environment variables
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, fmt.Errorf("load redis config: %w", err)
	}
	return cfg, nil
}

// Addr returns the host:port the client dials.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewClient creates a new Redis client with the provided configuration
func NewClient(cfg *Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolTimeout:  30 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis] Connected to %s (DB: %d)", cfg.Addr(), cfg.DB)
	log.Printf("[Redis] Pool config: PoolSize=%d", cfg.PoolSize)

	return &Client{rdb}, nil
}

// Store adapts the client to the game store contract. Scalar operations live
// in session.go, sorted-set operations in leaderboard.go.
type Store struct {
	client *Client
}

// NewStore returns a Store backed by c.
func NewStore(c *Client) *Store {
	return &Store{client: c}
}
